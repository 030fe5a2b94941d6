package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// CachePolicy controls how a read interacts with the response cache
type CachePolicy string

const (
	// UseCache reads the cache first and fills it on miss
	UseCache CachePolicy = "use_cache"
	// BypassCache goes straight upstream without reading or writing
	BypassCache CachePolicy = "bypass"
	// RefreshCache evicts, goes upstream, and stores the fresh value
	RefreshCache CachePolicy = "refresh"
)

// ParseCachePolicy maps a request parameter to a policy, defaulting to
// UseCache for the empty string
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch s {
	case "", string(UseCache):
		return UseCache, nil
	case string(BypassCache):
		return BypassCache, nil
	case string(RefreshCache):
		return RefreshCache, nil
	default:
		return "", apperr.Newf(apperr.InvalidInput, "unknown cache policy: %s", s)
	}
}

// CachingProvider wraps a FitnessProvider with cache-aside reads scoped
// to one (tenant, user). Cache failures are logged and treated as misses;
// upstream failures always propagate.
type CachingProvider struct {
	inner    FitnessProvider
	cache    *Cache
	tenantID string
	userID   string
	logger   *zap.Logger
}

// NewCachingProvider wraps a provider for a (tenant, user) pair
func NewCachingProvider(inner FitnessProvider, cache *Cache, tenantID, userID string, logger *zap.Logger) *CachingProvider {
	return &CachingProvider{
		inner:    inner,
		cache:    cache,
		tenantID: tenantID,
		userID:   userID,
		logger:   logger,
	}
}

func (p *CachingProvider) key(kind, qualifier string) CacheKey {
	return CacheKey{
		TenantID:  p.tenantID,
		UserID:    p.userID,
		Provider:  p.inner.Name(),
		Kind:      kind,
		Qualifier: qualifier,
	}
}

// GetAthlete reads the athlete profile through the cache
func (p *CachingProvider) GetAthlete(ctx context.Context, policy CachePolicy) (*domain.Athlete, error) {
	return cachedRead(ctx, p, policy, p.key("athlete_profile", "self"), CacheTTLAthleteProfile,
		func(ctx context.Context) (*domain.Athlete, error) {
			return p.inner.GetAthlete(ctx)
		})
}

// GetActivities reads one activity-list page through the cache
func (p *CachingProvider) GetActivities(ctx context.Context, policy CachePolicy, page, perPage int) ([]*domain.Activity, error) {
	qualifier := fmt.Sprintf("page=%d:per_page=%d", page, perPage)
	return cachedRead(ctx, p, policy, p.key("activity_list", qualifier), CacheTTLActivityList,
		func(ctx context.Context) ([]*domain.Activity, error) {
			return p.inner.GetActivities(ctx, page, perPage)
		})
}

// GetActivity reads one activity through the cache
func (p *CachingProvider) GetActivity(ctx context.Context, policy CachePolicy, id string) (*domain.Activity, error) {
	return cachedRead(ctx, p, policy, p.key("activity", id), CacheTTLActivity,
		func(ctx context.Context) (*domain.Activity, error) {
			return p.inner.GetActivity(ctx, id)
		})
}

// GetStats reads aggregate stats through the cache
func (p *CachingProvider) GetStats(ctx context.Context, policy CachePolicy) (*domain.Stats, error) {
	return cachedRead(ctx, p, policy, p.key("stats", "self"), CacheTTLStats,
		func(ctx context.Context) (*domain.Stats, error) {
			return p.inner.GetStats(ctx)
		})
}

func cachedRead[T any](
	ctx context.Context,
	p *CachingProvider,
	policy CachePolicy,
	key CacheKey,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	switch policy {
	case BypassCache:
		return fetch(ctx)

	case RefreshCache:
		if err := p.cache.Invalidate(ctx, key); err != nil {
			p.logger.Warn("cache invalidate failed", zap.Stringer("key", key), zap.Error(err))
		}

	default: // UseCache
		var cached T
		hit, err := p.cache.Get(ctx, key, &cached)
		if err != nil {
			p.logger.Warn("cache read failed", zap.Stringer("key", key), zap.Error(err))
		}
		if hit {
			return cached, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	if err := p.cache.Set(ctx, key, value, ttl); err != nil {
		p.logger.Warn("cache write failed", zap.Stringer("key", key), zap.Error(err))
	}

	return value, nil
}
