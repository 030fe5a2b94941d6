package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/config"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

// tokenRefreshBuffer is how close to expiry a stored token must be
// before the hot path refreshes it
const tokenRefreshBuffer = 5 * time.Minute

// CallbackResult is what the HTTP layer needs after a completed upstream
// OAuth flow
type CallbackResult struct {
	UserID            string     `json:"user_id"`
	Provider          string     `json:"provider"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Scopes            string     `json:"scopes,omitempty"`
	MobileRedirectURL string     `json:"mobile_redirect_url,omitempty"`
}

// UpstreamOAuth drives the outbound OAuth flows against fitness providers
// and owns the token-refresh hot path.
type UpstreamOAuth struct {
	providers   *ProviderRegistry
	states      repository.AuthStateRepository
	tokens      repository.UserTokenRepository
	tenantCreds repository.TenantCredentialsRepository
	tenants     repository.TenantRepository
	cache       *Cache
	bus         *NotificationBus
	envCreds    config.ProvidersConfig
	stateTTL    time.Duration
	logger      *zap.Logger
}

// NewUpstreamOAuth creates the upstream OAuth client
func NewUpstreamOAuth(
	providers *ProviderRegistry,
	states repository.AuthStateRepository,
	tokens repository.UserTokenRepository,
	tenantCreds repository.TenantCredentialsRepository,
	tenants repository.TenantRepository,
	cache *Cache,
	bus *NotificationBus,
	envCreds config.ProvidersConfig,
	stateTTL time.Duration,
	logger *zap.Logger,
) *UpstreamOAuth {
	return &UpstreamOAuth{
		providers:   providers,
		states:      states,
		tokens:      tokens,
		tenantCreds: tenantCreds,
		tenants:     tenants,
		cache:       cache,
		bus:         bus,
		envCreds:    envCreds,
		stateTTL:    stateTTL,
		logger:      logger,
	}
}

// oauthConfig resolves credentials for (tenant, provider) and builds the
// x/oauth2 config. Per-tenant stored credentials win over environment
// credentials.
func (s *UpstreamOAuth) oauthConfig(ctx context.Context, tenantID, provider string) (*oauth2.Config, error) {
	desc, err := s.providers.Descriptor(provider)
	if err != nil {
		return nil, err
	}

	var clientID, clientSecret, redirectURI string
	scopes := desc.DefaultScopes

	stored, err := s.tenantCreds.Get(ctx, tenantID, desc.Name)
	switch {
	case err == nil:
		clientID = stored.ClientID
		clientSecret = stored.ClientSecret
		redirectURI = stored.RedirectURI
		if len(stored.Scopes) > 0 {
			scopes = stored.Scopes
		}
	case errors.Is(err, repository.ErrNotFound):
		env, ok := s.envCreds.For(desc.Name)
		if !ok {
			return nil, apperr.Newf(apperr.InvalidInput, "%s client_id not configured", desc.Name)
		}
		clientID = env.ClientID
		clientSecret = env.ClientSecret
		redirectURI = env.RedirectURI
	default:
		return nil, fmt.Errorf("failed to load tenant credentials: %w", err)
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  desc.AuthURL,
			TokenURL: desc.TokenURL,
		},
	}

	// x/oauth2 joins scopes with spaces; providers with another separator
	// get a single pre-joined scope element.
	if desc.ScopeSeparator == " " {
		cfg.Scopes = scopes
	} else if len(scopes) > 0 {
		cfg.Scopes = []string{strings.Join(scopes, desc.ScopeSeparator)}
	}

	return cfg, nil
}

// BuildAuthorizationURL starts an upstream flow for a user. deepLink, when
// set, is a mobile redirect target carried through the state string; its
// scheme must be on the approved set.
func (s *UpstreamOAuth) BuildAuthorizationURL(ctx context.Context, userID, tenantID, provider, deepLink string) (string, error) {
	desc, err := s.providers.Descriptor(provider)
	if err != nil {
		return "", err
	}

	cfg, err := s.oauthConfig(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}

	nonce, err := utils.RandomHex(16)
	if err != nil {
		return "", err
	}

	state := fmt.Sprintf("%s:%s", userID, nonce)
	if deepLink != "" {
		if !utils.ValidateRedirectURI(deepLink) {
			return "", apperr.Newf(apperr.InvalidInput, "deep link scheme not allowed: %s", deepLink)
		}
		state += ":" + base64.RawURLEncoding.EncodeToString([]byte(deepLink))
	}

	opts := make([]oauth2.AuthCodeOption, 0, len(desc.ExtraAuthParams)+1)
	for k, v := range desc.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	record := &domain.AuthorizationState{
		State:       state,
		Provider:    desc.Name,
		UserID:      &userID,
		TenantID:    &tenantID,
		RedirectURI: cfg.RedirectURL,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(s.stateTTL),
	}
	if scope := desc.JoinedScopes(); scope != "" {
		record.Scope = &scope
	}

	if desc.UsePKCE {
		verifier := oauth2.GenerateVerifier()
		challenge := utils.S256Challenge(verifier)
		record.PKCECodeVerifier = &verifier
		record.CodeChallenge = &challenge
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	if err := s.states.Store(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store authorization state: %w", err)
	}

	return cfg.AuthCodeURL(state, opts...), nil
}

// HandleCallback finishes an upstream flow: consume state, exchange the
// code, persist the token, register the connection, publish completion.
func (s *UpstreamOAuth) HandleCallback(ctx context.Context, provider, code, state string) (*CallbackResult, error) {
	record, err := s.states.Consume(ctx, state, strings.ToLower(provider), time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "invalid or expired state")
		}
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	if record.UserID == nil {
		return nil, apperr.New(apperr.AuthInvalid, "invalid or expired state")
	}
	userID := *record.UserID

	var tenantID string
	if record.TenantID != nil {
		tenantID = *record.TenantID
	} else {
		tenant, err := s.tenants.PrimaryTenantForUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.New(apperr.InvalidInput, "user has no tenant")
			}
			return nil, fmt.Errorf("failed to resolve tenant: %w", err)
		}
		tenantID = tenant.ID
	}

	cfg, err := s.oauthConfig(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if record.PKCECodeVerifier != nil {
		opts = append(opts, oauth2.VerifierOption(*record.PKCECodeVerifier))
	}

	tok, err := cfg.Exchange(ctx, code, opts...)
	if err != nil {
		s.publishCompletion(provider, userID, false, "token exchange failed")
		return nil, apperr.Wrap(apperr.AuthInvalid, "code exchange failed", err)
	}

	stored := &domain.UserOAuthToken{
		UserID:      userID,
		TenantID:    tenantID,
		Provider:    strings.ToLower(provider),
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	if tok.RefreshToken != "" {
		stored.RefreshToken = &tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		stored.ExpiresAt = &expiry
	}
	if record.Scope != nil {
		stored.Scope = record.Scope
	}

	if err := s.tokens.Upsert(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	conn := &domain.ProviderConnection{
		UserID:         userID,
		TenantID:       tenantID,
		Provider:       stored.Provider,
		ConnectionType: domain.ConnectionTypeOAuth,
	}
	if err := s.tokens.RegisterConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to register connection: %w", err)
	}

	s.publishCompletion(provider, userID, true, "connected")

	result := &CallbackResult{
		UserID:    userID,
		Provider:  stored.Provider,
		ExpiresAt: stored.ExpiresAt,
	}
	if stored.Scope != nil {
		result.Scopes = *stored.Scope
	}
	if deepLink, ok := deepLinkFromState(state); ok {
		result.MobileRedirectURL = deepLink
	}

	return result, nil
}

// GetValidToken fetches the stored token for (user, tenant, provider),
// refreshing it once when it is within the expiry buffer. Every path
// that cannot produce a usable token reports AuthRequired so handlers
// surface "please reconnect".
func (s *UpstreamOAuth) GetValidToken(ctx context.Context, userID, tenantID, provider string) (*domain.UserOAuthToken, error) {
	tok, err := s.tokens.Get(ctx, userID, tenantID, provider)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Newf(apperr.AuthRequired, "no %s connection, please reconnect", provider)
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if !tok.ExpiresWithin(tokenRefreshBuffer) {
		return tok, nil
	}

	if tok.RefreshToken == nil {
		return nil, apperr.Newf(apperr.AuthRequired, "%s token expired and cannot be refreshed, please reconnect", provider)
	}

	cfg, err := s.oauthConfig(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	source := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: *tok.RefreshToken})
	fresh, err := source.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			re.Response.StatusCode >= http.StatusBadRequest && re.Response.StatusCode < http.StatusInternalServerError {
			// Provider rejected the refresh token outright; drop the
			// dead credential so the next attempt starts clean.
			if delErr := s.tokens.Delete(ctx, userID, tenantID, provider); delErr != nil {
				s.logger.Warn("failed to drop rejected token", zap.String("provider", provider), zap.Error(delErr))
			}
		} else {
			s.logger.Warn("provider refresh unavailable, keeping stored token",
				zap.String("provider", provider), zap.Error(err))
		}
		return nil, apperr.Newf(apperr.AuthRequired, "%s token refresh failed, please reconnect", provider)
	}

	tok.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		tok.RefreshToken = &fresh.RefreshToken
	}
	if !fresh.Expiry.IsZero() {
		expiry := fresh.Expiry
		tok.ExpiresAt = &expiry
	}

	if err := s.tokens.Upsert(ctx, tok); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	s.logger.Info("refreshed upstream token",
		zap.String("provider", provider),
		zap.String("user_id", userID),
	)

	return tok, nil
}

// Disconnect removes the stored token and connection and wipes every
// cached response for the (tenant, user, provider)
func (s *UpstreamOAuth) Disconnect(ctx context.Context, userID, tenantID, provider string) error {
	if err := s.tokens.Delete(ctx, userID, tenantID, provider); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if err := s.tokens.RemoveConnection(ctx, userID, tenantID, provider); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	if err := s.cache.InvalidatePattern(ctx, UserPattern(tenantID, userID, provider)); err != nil {
		s.logger.Warn("failed to invalidate cache on disconnect",
			zap.String("provider", provider), zap.Error(err))
	}

	return nil
}

func (s *UpstreamOAuth) publishCompletion(provider, userID string, success bool, message string) {
	s.bus.PublishOAuthCompleted(OAuthCompletedEvent{
		Provider: strings.ToLower(provider),
		Success:  success,
		Message:  message,
		UserID:   userID,
	})
}

// deepLinkFromState extracts the optional third state segment. The user
// id prefix is a UUID, so the deep-link payload always sits after the
// second colon.
func deepLinkFromState(state string) (string, bool) {
	parts := strings.SplitN(state, ":", 3)
	if len(parts) != 3 {
		return "", false
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		return "", false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
