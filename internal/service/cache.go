package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// Per-kind response TTLs. Profiles move slowly, activity lists churn,
// and a recorded activity never changes.
const (
	CacheTTLAthleteProfile = 6 * time.Hour
	CacheTTLStats          = 10 * time.Minute
	CacheTTLActivityList   = 30 * time.Second
	CacheTTLActivity       = 24 * time.Hour
)

// CacheKey identifies one cached upstream response
type CacheKey struct {
	TenantID  string
	UserID    string
	Provider  string
	Kind      string
	Qualifier string
}

// String renders the colon-delimited Redis key form
func (k CacheKey) String() string {
	return fmt.Sprintf("tenant:%s:user:%s:provider:%s:%s:%s",
		k.TenantID, k.UserID, k.Provider, k.Kind, k.Qualifier)
}

// UserPattern matches every cached entry for a (tenant, user, provider)
func UserPattern(tenantID, userID, provider string) string {
	return fmt.Sprintf("tenant:%s:user:%s:provider:%s:*", tenantID, userID, provider)
}

// ActivityListPattern matches only the activity-list pages for a
// (tenant, user, provider)
func ActivityListPattern(tenantID, userID, provider string) string {
	return fmt.Sprintf("tenant:%s:user:%s:provider:%s:activity_list:*", tenantID, userID, provider)
}

// Cache is the Redis-backed response cache. Backend errors are the
// caller's to log; they must never fail a request.
type Cache struct {
	redis  *database.Redis
	logger *zap.Logger
}

// NewCache creates a response cache
func NewCache(redis *database.Redis, logger *zap.Logger) *Cache {
	return &Cache{redis: redis, logger: logger}
}

// Get reads a cached value into dest. Returns false on miss.
func (c *Cache) Get(ctx context.Context, key CacheKey, dest any) (bool, error) {
	raw, err := c.redis.Client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}

	return true, nil
}

// Set stores a value under the key with the given TTL
func (c *Cache) Set(ctx context.Context, key CacheKey, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	if err := c.redis.Client.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}

	return nil
}

// Invalidate removes a single entry
func (c *Cache) Invalidate(ctx context.Context, key CacheKey) error {
	if err := c.redis.Client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache key: %w", err)
	}
	return nil
}

// InvalidatePattern removes every entry matching a glob pattern using
// SCAN so large keyspaces are not blocked.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.redis.Client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.redis.Client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
