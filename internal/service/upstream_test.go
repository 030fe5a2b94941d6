package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/config"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

type upstreamFixture struct {
	oauth     *UpstreamOAuth
	providers *ProviderRegistry
	states    *fakeAuthStateRepo
	tokens    *fakeUserTokenRepo
	creds     *fakeTenantCredsRepo
	bus       *NotificationBus
	userID    string
	tenantID  string
}

func newUpstreamFixture(t *testing.T) *upstreamFixture {
	t.Helper()

	rdb, _ := newTestRedis(t)
	providers := NewProviderRegistry()
	states := newFakeAuthStateRepo()
	tokens := newFakeUserTokenRepo()
	creds := newFakeTenantCredsRepo()
	bus := NewNotificationBus(zap.NewNop())

	envCreds := config.ProvidersConfig{
		Strava: config.ProviderCredentials{
			ClientID:     "strava-client",
			ClientSecret: "strava-secret",
			RedirectURI:  "https://gateway.example.com/api/oauth/callback/strava",
		},
		Fitbit: config.ProviderCredentials{
			ClientID:     "fitbit-client",
			ClientSecret: "fitbit-secret",
			RedirectURI:  "https://gateway.example.com/api/oauth/callback/fitbit",
		},
	}

	oauth := NewUpstreamOAuth(
		providers,
		states,
		tokens,
		creds,
		newFakeTenantRepo(),
		NewCache(rdb, zap.NewNop()),
		bus,
		envCreds,
		10*time.Minute,
		zap.NewNop(),
	)

	return &upstreamFixture{
		oauth:     oauth,
		providers: providers,
		states:    states,
		tokens:    tokens,
		creds:     creds,
		bus:       bus,
		userID:    uuid.New().String(),
		tenantID:  uuid.New().String(),
	}
}

func TestBuildAuthorizationURLStrava(t *testing.T) {
	f := newUpstreamFixture(t)

	raw, err := f.oauth.BuildAuthorizationURL(context.Background(), f.userID, f.tenantID, "strava", "")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.strava.com", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "strava-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "read,activity:read_all", q.Get("scope"), "strava scopes are comma separated")
	assert.Equal(t, "auto", q.Get("approval_prompt"))

	state := q.Get("state")
	require.NotEmpty(t, state)
	parts := strings.SplitN(state, ":", 3)
	require.Len(t, parts, 2)
	assert.Equal(t, f.userID, parts[0])
	assert.Len(t, parts[1], 32)
}

func TestBuildAuthorizationURLFitbitUsesPKCE(t *testing.T) {
	f := newUpstreamFixture(t)

	raw, err := f.oauth.BuildAuthorizationURL(context.Background(), f.userID, f.tenantID, "fitbit", "")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "activity profile heartrate", q.Get("scope"))
}

func TestBuildAuthorizationURLDeepLink(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	raw, err := f.oauth.BuildAuthorizationURL(ctx, f.userID, f.tenantID, "strava", "pierre://oauth/done")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	deepLink, ok := deepLinkFromState(state)
	require.True(t, ok)
	assert.Equal(t, "pierre://oauth/done", deepLink)

	_, err = f.oauth.BuildAuthorizationURL(ctx, f.userID, f.tenantID, "strava", "javascript:alert(1)")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestBuildAuthorizationURLTenantCredentialsWin(t *testing.T) {
	f := newUpstreamFixture(t)
	require.NoError(t, f.creds.Upsert(context.Background(), &domain.TenantOAuthCredentials{
		TenantID:     f.tenantID,
		Provider:     "strava",
		ClientID:     "tenant-client",
		ClientSecret: "tenant-secret",
		RedirectURI:  "https://tenant.example.com/callback",
		Scopes:       []string{"read"},
	}))

	raw, err := f.oauth.BuildAuthorizationURL(context.Background(), f.userID, f.tenantID, "strava", "")
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "tenant-client", q.Get("client_id"))
	assert.Equal(t, "https://tenant.example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "read", q.Get("scope"))
}

func TestBuildAuthorizationURLUnconfiguredProvider(t *testing.T) {
	f := newUpstreamFixture(t)

	_, err := f.oauth.BuildAuthorizationURL(context.Background(), f.userID, f.tenantID, "whoop", "")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "client_id not configured")

	_, err = f.oauth.BuildAuthorizationURL(context.Background(), f.userID, f.tenantID, "polar", "")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestDeepLinkFromState(t *testing.T) {
	userID := uuid.New().String()
	encoded := base64.RawURLEncoding.EncodeToString([]byte("pierre://done"))

	link, ok := deepLinkFromState(userID + ":abcdef:" + encoded)
	assert.True(t, ok)
	assert.Equal(t, "pierre://done", link)

	_, ok = deepLinkFromState(userID + ":abcdef")
	assert.False(t, ok)

	_, ok = deepLinkFromState("not-a-uuid:abcdef:" + encoded)
	assert.False(t, ok)

	_, ok = deepLinkFromState(userID + ":abcdef:%%%")
	assert.False(t, ok)
}

func TestHandleCallback(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "upstream-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer exchange.Close()

	desc, err := f.providers.Descriptor("strava")
	require.NoError(t, err)
	originalTokenURL := desc.TokenURL
	desc.TokenURL = exchange.URL
	defer func() { desc.TokenURL = originalTokenURL }()

	_, events := f.bus.SubscribeOAuth()

	raw, err := f.oauth.BuildAuthorizationURL(ctx, f.userID, f.tenantID, "strava", "")
	require.NoError(t, err)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	result, err := f.oauth.HandleCallback(ctx, "strava", "upstream-code", state)
	require.NoError(t, err)
	assert.Equal(t, f.userID, result.UserID)
	assert.Equal(t, "strava", result.Provider)
	require.NotNil(t, result.ExpiresAt)
	assert.Equal(t, "read,activity:read_all", result.Scopes)

	stored, err := f.tokens.Get(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", stored.AccessToken)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, "fresh-refresh", *stored.RefreshToken)

	conn, err := f.tokens.GetConnection(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionTypeOAuth, conn.ConnectionType)

	event := <-events
	assert.True(t, event.Success)
	assert.Equal(t, "strava", event.Provider)
	assert.Equal(t, f.userID, event.UserID)

	// State is single use.
	_, err = f.oauth.HandleCallback(ctx, "strava", "upstream-code", state)
	require.Error(t, err)
	assert.Equal(t, apperr.AuthInvalid, apperr.KindOf(err))
}

func TestAuthStateConsumeExpiryBoundary(t *testing.T) {
	states := newFakeAuthStateRepo()
	ctx := context.Background()
	now := time.Now()
	userID := uuid.New().String()

	// A state expiring exactly at the consume instant is already dead.
	require.NoError(t, states.Store(ctx, &domain.AuthorizationState{
		State:     "at-expiry",
		Provider:  "strava",
		UserID:    &userID,
		ExpiresAt: now,
	}))
	_, err := states.Consume(ctx, "at-expiry", "strava", now)
	require.Error(t, err)

	// One millisecond of life left is enough.
	require.NoError(t, states.Store(ctx, &domain.AuthorizationState{
		State:     "almost-expired",
		Provider:  "strava",
		UserID:    &userID,
		ExpiresAt: now.Add(time.Millisecond),
	}))
	record, err := states.Consume(ctx, "almost-expired", "strava", now)
	require.NoError(t, err)
	assert.True(t, record.Used)
}

func TestHandleCallbackInvalidState(t *testing.T) {
	f := newUpstreamFixture(t)

	_, err := f.oauth.HandleCallback(context.Background(), "strava", "code", "never-stored")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthInvalid, apperr.KindOf(err))
}

func TestGetValidTokenFreshTokenPassesThrough(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:      f.userID,
		TenantID:    f.tenantID,
		Provider:    "strava",
		AccessToken: "live-access",
		ExpiresAt:   &future,
	}))

	tok, err := f.oauth.GetValidToken(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	assert.Equal(t, "live-access", tok.AccessToken)
}

func TestGetValidTokenNoConnection(t *testing.T) {
	f := newUpstreamFixture(t)

	_, err := f.oauth.GetValidToken(context.Background(), f.userID, f.tenantID, "strava")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthRequired, apperr.KindOf(err))
	assert.Equal(t, "no strava connection, please reconnect", apperr.MessageOf(err))
}

func TestGetValidTokenExpiredWithoutRefreshToken(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:      f.userID,
		TenantID:    f.tenantID,
		Provider:    "strava",
		AccessToken: "stale-access",
		ExpiresAt:   &past,
	}))

	_, err := f.oauth.GetValidToken(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthRequired, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "cannot be refreshed")
}

func TestGetValidTokenRefreshesNearExpiry(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	refresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "rotated-access",
			"refresh_token": "rotated-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer refresh.Close()

	desc, err := f.providers.Descriptor("strava")
	require.NoError(t, err)
	originalTokenURL := desc.TokenURL
	desc.TokenURL = refresh.URL
	defer func() { desc.TokenURL = originalTokenURL }()

	soon := time.Now().Add(time.Minute)
	oldRefresh := "old-refresh"
	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:       f.userID,
		TenantID:     f.tenantID,
		Provider:     "strava",
		AccessToken:  "stale-access",
		RefreshToken: &oldRefresh,
		ExpiresAt:    &soon,
	}))

	tok, err := f.oauth.GetValidToken(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", tok.AccessToken)
	require.NotNil(t, tok.RefreshToken)
	assert.Equal(t, "rotated-refresh", *tok.RefreshToken)

	stored, err := f.tokens.Get(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", stored.AccessToken)
}

func TestGetValidTokenRefreshRejectedDropsToken(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	rejected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer rejected.Close()

	desc, err := f.providers.Descriptor("strava")
	require.NoError(t, err)
	originalTokenURL := desc.TokenURL
	desc.TokenURL = rejected.URL
	defer func() { desc.TokenURL = originalTokenURL }()

	soon := time.Now().Add(time.Minute)
	deadRefresh := "dead-refresh"
	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:       f.userID,
		TenantID:     f.tenantID,
		Provider:     "strava",
		AccessToken:  "stale-access",
		RefreshToken: &deadRefresh,
		ExpiresAt:    &soon,
	}))

	_, err = f.oauth.GetValidToken(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthRequired, apperr.KindOf(err))

	// 4xx means the credential is dead; it gets dropped.
	_, err = f.tokens.Get(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)
}

func TestGetValidTokenRefreshOutageKeepsToken(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	desc, err := f.providers.Descriptor("strava")
	require.NoError(t, err)
	originalTokenURL := desc.TokenURL
	desc.TokenURL = down.URL
	defer func() { desc.TokenURL = originalTokenURL }()

	soon := time.Now().Add(time.Minute)
	refresh := "still-good-refresh"
	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:       f.userID,
		TenantID:     f.tenantID,
		Provider:     "strava",
		AccessToken:  "stale-access",
		RefreshToken: &refresh,
		ExpiresAt:    &soon,
	}))

	_, err = f.oauth.GetValidToken(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthRequired, apperr.KindOf(err))

	// A provider outage is not a dead credential; the token survives.
	stored, err := f.tokens.Get(ctx, f.userID, f.tenantID, "strava")
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, "still-good-refresh", *stored.RefreshToken)
}

func TestDisconnect(t *testing.T) {
	f := newUpstreamFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tokens.Upsert(ctx, &domain.UserOAuthToken{
		UserID:      f.userID,
		TenantID:    f.tenantID,
		Provider:    "strava",
		AccessToken: "access",
	}))
	require.NoError(t, f.tokens.RegisterConnection(ctx, &domain.ProviderConnection{
		UserID:         f.userID,
		TenantID:       f.tenantID,
		Provider:       "strava",
		ConnectionType: domain.ConnectionTypeOAuth,
	}))

	require.NoError(t, f.oauth.Disconnect(ctx, f.userID, f.tenantID, "strava"))

	_, err := f.tokens.Get(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)
	_, err = f.tokens.GetConnection(ctx, f.userID, f.tenantID, "strava")
	require.Error(t, err)

	// Disconnecting again is a no-op, not an error.
	require.NoError(t, f.oauth.Disconnect(ctx, f.userID, f.tenantID, "strava"))
}

func TestProviderRegistryCatalogue(t *testing.T) {
	registry := NewProviderRegistry()

	assert.True(t, registry.IsSupported("strava"))
	assert.True(t, registry.IsSupported("Fitbit"))
	assert.False(t, registry.IsSupported("polar"))

	assert.Equal(t, []string{"coros", "fitbit", "garmin", "strava", "terra", "whoop"}, registry.OAuthProviders())

	desc, err := registry.Descriptor("strava")
	require.NoError(t, err)
	assert.Equal(t, "read,activity:read_all", desc.JoinedScopes())

	_, err = registry.Descriptor("polar")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestProviderRegistryUnsupportedDataAPI(t *testing.T) {
	registry := NewProviderRegistry()

	provider, err := registry.CreateProvider("whoop")
	require.NoError(t, err)

	_, err = provider.GetActivities(context.Background(), 1, 30)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Equal(t, "provider whoop does not support activity listings", apperr.MessageOf(err))
}

func TestProviderRegistryCreatesStrava(t *testing.T) {
	registry := NewProviderRegistry()

	provider, err := registry.CreateProvider("strava")
	require.NoError(t, err)
	assert.Equal(t, "strava", provider.Name())
}
