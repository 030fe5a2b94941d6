package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
)

const (
	defaultActivityPage    = 1
	defaultActivityPerPage = 30
)

// ToolHandlers implements the catalogue tools on top of the upstream
// OAuth client, the provider registry, and the cache.
type ToolHandlers struct {
	upstream  *UpstreamOAuth
	providers *ProviderRegistry
	cache     *Cache
	tokens    repository.UserTokenRepository
	users     repository.UserRepository
	selection *ToolSelection
	progress  *ProgressBus
	logger    *zap.Logger
}

// NewToolHandlers wires the tool handler set
func NewToolHandlers(
	upstream *UpstreamOAuth,
	providers *ProviderRegistry,
	cache *Cache,
	tokens repository.UserTokenRepository,
	users repository.UserRepository,
	selection *ToolSelection,
	progress *ProgressBus,
	logger *zap.Logger,
) *ToolHandlers {
	return &ToolHandlers{
		upstream:  upstream,
		providers: providers,
		cache:     cache,
		tokens:    tokens,
		users:     users,
		selection: selection,
		progress:  progress,
		logger:    logger,
	}
}

// ConnectProvider starts an upstream OAuth flow and returns the URL the
// caller must visit
func (h *ToolHandlers) ConnectProvider(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, err := stringParam(req.Parameters, "provider", true)
	if err != nil {
		return nil, err
	}
	deepLink, _ := stringParam(req.Parameters, "deep_link", false)

	authURL, err := h.upstream.BuildAuthorizationURL(ctx, req.UserID, req.TenantID, provider, deepLink)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"provider":          provider,
		"authorization_url": authURL,
	}, nil
}

// DisconnectProvider removes the stored connection and its cached data
func (h *ToolHandlers) DisconnectProvider(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, err := stringParam(req.Parameters, "provider", true)
	if err != nil {
		return nil, err
	}

	if err := h.upstream.Disconnect(ctx, req.UserID, req.TenantID, provider); err != nil {
		return nil, err
	}

	return map[string]any{
		"provider":  provider,
		"connected": false,
	}, nil
}

// GetConnectionStatus lists the caller's provider connections
func (h *ToolHandlers) GetConnectionStatus(ctx context.Context, req *UniversalRequest) (any, error) {
	connections, err := h.tokens.ListConnections(ctx, req.UserID, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	status := make([]map[string]any, 0, len(connections))
	for _, c := range connections {
		status = append(status, map[string]any{
			"provider":        c.Provider,
			"connected":       true,
			"connection_type": string(c.ConnectionType),
		})
	}

	return map[string]any{"connections": status}, nil
}

// GetActivities fetches one activity page through the cache
func (h *ToolHandlers) GetActivities(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, policy, err := h.readProviderParams(req)
	if err != nil {
		return nil, err
	}
	page := intParam(req.Parameters, "page", defaultActivityPage)
	perPage := intParam(req.Parameters, "per_page", defaultActivityPerPage)
	if page < 1 || perPage < 1 || perPage > 200 {
		return nil, apperr.New(apperr.InvalidInput, "page must be >= 1 and per_page in 1..200")
	}

	h.progress.Report(req.ProgressToken, 0, 2, "authorizing")
	cp, err := h.cachingProvider(ctx, req, provider)
	if err != nil {
		return nil, err
	}

	h.progress.Report(req.ProgressToken, 1, 2, "fetching activities")
	activities, err := cp.GetActivities(ctx, policy, page, perPage)
	if err != nil {
		return nil, err
	}
	h.progress.Report(req.ProgressToken, 2, 2, "done")

	return map[string]any{
		"provider":   provider,
		"page":       page,
		"per_page":   perPage,
		"activities": activities,
	}, nil
}

// GetActivity fetches one activity through the cache
func (h *ToolHandlers) GetActivity(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, policy, err := h.readProviderParams(req)
	if err != nil {
		return nil, err
	}
	activityID, err := stringParam(req.Parameters, "activity_id", true)
	if err != nil {
		return nil, err
	}

	cp, err := h.cachingProvider(ctx, req, provider)
	if err != nil {
		return nil, err
	}

	return cp.GetActivity(ctx, policy, activityID)
}

// GetAthlete fetches the athlete profile through the cache
func (h *ToolHandlers) GetAthlete(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, policy, err := h.readProviderParams(req)
	if err != nil {
		return nil, err
	}

	cp, err := h.cachingProvider(ctx, req, provider)
	if err != nil {
		return nil, err
	}

	return cp.GetAthlete(ctx, policy)
}

// GetStats fetches aggregate stats through the cache
func (h *ToolHandlers) GetStats(ctx context.Context, req *UniversalRequest) (any, error) {
	provider, policy, err := h.readProviderParams(req)
	if err != nil {
		return nil, err
	}

	cp, err := h.cachingProvider(ctx, req, provider)
	if err != nil {
		return nil, err
	}

	return cp.GetStats(ctx, policy)
}

// SetToolOverride toggles a tool for the caller's tenant
func (h *ToolHandlers) SetToolOverride(ctx context.Context, req *UniversalRequest) (any, error) {
	toolName, err := stringParam(req.Parameters, "tool_name", true)
	if err != nil {
		return nil, err
	}
	enabled, ok := req.Parameters["enabled"].(bool)
	if !ok {
		return nil, apperr.New(apperr.InvalidInput, "enabled must be a boolean")
	}

	var reason *string
	if r, _ := stringParam(req.Parameters, "reason", false); r != "" {
		reason = &r
	}

	if err := h.selection.SetOverride(ctx, req.TenantID, toolName, enabled, req.UserID, req.Role, reason); err != nil {
		return nil, err
	}

	return map[string]any{
		"tool_name": toolName,
		"enabled":   enabled,
	}, nil
}

// ListTools returns the effective catalogue for the caller's tenant
func (h *ToolHandlers) ListTools(ctx context.Context, req *UniversalRequest) (any, error) {
	tools, err := h.selection.EffectiveTools(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tools": tools}, nil
}

// AdminDeleteUser removes a user account and wipes its cached responses
func (h *ToolHandlers) AdminDeleteUser(ctx context.Context, req *UniversalRequest) (any, error) {
	userID, err := stringParam(req.Parameters, "user_id", true)
	if err != nil {
		return nil, err
	}

	if err := h.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "user not found: %s", userID)
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	pattern := fmt.Sprintf("tenant:*:user:%s:*", userID)
	if err := h.cache.InvalidatePattern(ctx, pattern); err != nil {
		h.logger.Warn("failed to wipe cache for deleted user", zap.String("user_id", userID), zap.Error(err))
	}

	return map[string]any{
		"user_id": userID,
		"deleted": true,
	}, nil
}

// cachingProvider materialises an authenticated, cache-wrapped provider
// for the calling user
func (h *ToolHandlers) cachingProvider(ctx context.Context, req *UniversalRequest, provider string) (*CachingProvider, error) {
	token, err := h.upstream.GetValidToken(ctx, req.UserID, req.TenantID, provider)
	if err != nil {
		return nil, err
	}

	client, err := h.providers.CreateProvider(provider)
	if err != nil {
		return nil, err
	}
	client.SetCredentials(token.AccessToken)

	return NewCachingProvider(client, h.cache, req.TenantID, req.UserID, h.logger), nil
}

func (h *ToolHandlers) readProviderParams(req *UniversalRequest) (string, CachePolicy, error) {
	provider, err := stringParam(req.Parameters, "provider", true)
	if err != nil {
		return "", "", err
	}
	raw, _ := stringParam(req.Parameters, "cache_policy", false)
	policy, err := ParseCachePolicy(raw)
	if err != nil {
		return "", "", err
	}
	return provider, policy, nil
}

func stringParam(params map[string]any, key string, required bool) (string, error) {
	value, ok := params[key]
	if !ok || value == nil {
		if required {
			return "", apperr.Newf(apperr.InvalidInput, "%s is required", key)
		}
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", apperr.Newf(apperr.InvalidInput, "%s must be a string", key)
	}
	if required && s == "" {
		return "", apperr.Newf(apperr.InvalidInput, "%s is required", key)
	}
	return s, nil
}

func intParam(params map[string]any, key string, fallback int) int {
	value, ok := params[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
