package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/utils"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// CSRFService issues short-lived tokens bound to a user for cookie-auth'd
// unsafe requests
type CSRFService struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewCSRFService creates a CSRF token store
func NewCSRFService(redis *database.Redis, ttl time.Duration) *CSRFService {
	return &CSRFService{redis: redis, ttl: ttl}
}

// Issue generates a fresh token for a user
func (s *CSRFService) Issue(ctx context.Context, userID string) (string, error) {
	token, err := utils.RandomHex(32)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("csrf:%s:%s", userID, token)
	if err := s.redis.Client.Set(ctx, key, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store CSRF token: %w", err)
	}

	return token, nil
}

// Validate reports whether the token is live for the user. Tokens stay
// valid until expiry so concurrent tabs keep working.
func (s *CSRFService) Validate(ctx context.Context, userID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	key := fmt.Sprintf("csrf:%s:%s", userID, token)
	exists, err := s.redis.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check CSRF token: %w", err)
	}

	return exists > 0, nil
}
