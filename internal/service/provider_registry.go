package service

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// FitnessProvider is the read surface of one upstream fitness API.
// SetCredentials must be called with a valid access token before any read.
type FitnessProvider interface {
	Name() string
	SetCredentials(accessToken string)
	GetAthlete(ctx context.Context) (*domain.Athlete, error)
	GetActivities(ctx context.Context, page, perPage int) ([]*domain.Activity, error)
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// ProviderCapabilities are the data classes a provider can serve
type ProviderCapabilities struct {
	Activities bool `json:"activities"`
	Sleep      bool `json:"sleep"`
	Recovery   bool `json:"recovery"`
	Health     bool `json:"health"`
}

// ProviderDescriptor is the static catalogue entry for one upstream provider
type ProviderDescriptor struct {
	Name            string
	DisplayName     string
	Capabilities    ProviderCapabilities
	AuthURL         string
	TokenURL        string
	APIBaseURL      string
	ScopeSeparator  string
	UsePKCE         bool
	ExtraAuthParams map[string]string
	DefaultScopes   []string

	factory func(baseURL string, client *http.Client) FitnessProvider
}

// JoinedScopes renders the default scopes with the provider's separator
func (d *ProviderDescriptor) JoinedScopes() string {
	return strings.Join(d.DefaultScopes, d.ScopeSeparator)
}

// ProviderRegistry is the static catalogue of supported upstream providers
type ProviderRegistry struct {
	descriptors map[string]*ProviderDescriptor
	httpClient  *http.Client
}

// NewProviderRegistry builds the catalogue
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		descriptors: make(map[string]*ProviderDescriptor),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}

	r.add(&ProviderDescriptor{
		Name:            "strava",
		DisplayName:     "Strava",
		Capabilities:    ProviderCapabilities{Activities: true},
		AuthURL:         "https://www.strava.com/oauth/authorize",
		TokenURL:        "https://www.strava.com/oauth/token",
		APIBaseURL:      "https://www.strava.com/api/v3",
		ScopeSeparator:  ",",
		ExtraAuthParams: map[string]string{"approval_prompt": "auto"},
		DefaultScopes:   []string{"read", "activity:read_all"},
		factory:         newStravaProvider,
	})

	r.add(&ProviderDescriptor{
		Name:           "fitbit",
		DisplayName:    "Fitbit",
		Capabilities:   ProviderCapabilities{Activities: true, Sleep: true, Health: true},
		AuthURL:        "https://www.fitbit.com/oauth2/authorize",
		TokenURL:       "https://api.fitbit.com/oauth2/token",
		APIBaseURL:     "https://api.fitbit.com",
		ScopeSeparator: " ",
		UsePKCE:        true,
		DefaultScopes:  []string{"activity", "profile", "heartrate"},
		factory:        newFitbitProvider,
	})

	r.add(&ProviderDescriptor{
		Name:           "garmin",
		DisplayName:    "Garmin Connect",
		Capabilities:   ProviderCapabilities{Activities: true, Sleep: true, Health: true},
		AuthURL:        "https://connect.garmin.com/oauth2Confirm",
		TokenURL:       "https://diauth.garmin.com/di-oauth2-service/oauth/token",
		APIBaseURL:     "https://apis.garmin.com",
		ScopeSeparator: " ",
		UsePKCE:        true,
	})

	r.add(&ProviderDescriptor{
		Name:           "whoop",
		DisplayName:    "WHOOP",
		Capabilities:   ProviderCapabilities{Recovery: true, Sleep: true},
		AuthURL:        "https://api.prod.whoop.com/oauth/oauth2/auth",
		TokenURL:       "https://api.prod.whoop.com/oauth/oauth2/token",
		APIBaseURL:     "https://api.prod.whoop.com/developer",
		ScopeSeparator: " ",
		DefaultScopes:  []string{"read:profile", "read:workout", "read:recovery"},
	})

	r.add(&ProviderDescriptor{
		Name:           "coros",
		DisplayName:    "COROS",
		Capabilities:   ProviderCapabilities{Activities: true},
		AuthURL:        "https://open.coros.com/oauth2/authorize",
		TokenURL:       "https://open.coros.com/oauth2/accesstoken",
		APIBaseURL:     "https://open.coros.com",
		ScopeSeparator: " ",
	})

	r.add(&ProviderDescriptor{
		Name:           "terra",
		DisplayName:    "Terra",
		Capabilities:   ProviderCapabilities{Activities: true, Sleep: true, Health: true},
		AuthURL:        "https://auth.tryterra.co/auth/authorize",
		TokenURL:       "https://auth.tryterra.co/auth/token",
		APIBaseURL:     "https://api.tryterra.co/v2",
		ScopeSeparator: " ",
	})

	return r
}

func (r *ProviderRegistry) add(d *ProviderDescriptor) {
	r.descriptors[d.Name] = d
}

// IsSupported reports whether the name is a known provider
func (r *ProviderRegistry) IsSupported(name string) bool {
	_, ok := r.descriptors[strings.ToLower(name)]
	return ok
}

// Descriptor returns the catalogue entry for a provider
func (r *ProviderRegistry) Descriptor(name string) (*ProviderDescriptor, error) {
	d, ok := r.descriptors[strings.ToLower(name)]
	if !ok {
		return nil, apperr.Newf(apperr.InvalidInput, "unsupported provider: %s", name)
	}
	return d, nil
}

// OAuthProviders lists all provider names, sorted for stable output
func (r *ProviderRegistry) OAuthProviders() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateProvider materialises a client for the provider. Providers
// without a dedicated implementation reject every read.
func (r *ProviderRegistry) CreateProvider(name string) (FitnessProvider, error) {
	d, err := r.Descriptor(name)
	if err != nil {
		return nil, err
	}
	if d.factory == nil {
		return &unsupportedProvider{name: d.Name}, nil
	}
	return d.factory(d.APIBaseURL, r.httpClient), nil
}

// unsupportedProvider backs descriptors that can complete OAuth but have
// no data API wired yet
type unsupportedProvider struct {
	name string
}

func (p *unsupportedProvider) Name() string          { return p.name }
func (p *unsupportedProvider) SetCredentials(string) {}

func (p *unsupportedProvider) err(op string) error {
	return apperr.Newf(apperr.InvalidInput, "provider %s does not support %s", p.name, op)
}

func (p *unsupportedProvider) GetAthlete(context.Context) (*domain.Athlete, error) {
	return nil, p.err("athlete profiles")
}

func (p *unsupportedProvider) GetActivities(context.Context, int, int) ([]*domain.Activity, error) {
	return nil, p.err("activity listings")
}

func (p *unsupportedProvider) GetActivity(context.Context, string) (*domain.Activity, error) {
	return nil, p.err("activity lookups")
}

func (p *unsupportedProvider) GetStats(context.Context) (*domain.Stats, error) {
	return nil, p.err("stats")
}
