package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// accessClaims is the JWT claim set carried by internal access tokens
type accessClaims struct {
	ActiveTenantID string      `json:"active_tenant_id,omitempty"`
	Role           domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService mints and validates internal RS256 access tokens. All
// signing material comes from the key set; the kid travels in the token
// header so verification survives rotation.
type TokenService struct {
	keys   *KeySet
	expiry time.Duration
}

// NewTokenService creates a token service with the given access-token lifetime
func NewTokenService(keys *KeySet, expiry time.Duration) *TokenService {
	return &TokenService{keys: keys, expiry: expiry}
}

// Mint issues an access token for a subject scoped to an active tenant.
// activeTenantID may be empty for tokens issued before tenant selection,
// and the subject may be a client id for client_credentials grants.
func (s *TokenService) Mint(subject, activeTenantID string, role domain.Role) (string, error) {
	kid, key, err := s.keys.CurrentSigningKey()
	if err != nil {
		return "", fmt.Errorf("failed to get signing key: %w", err)
	}

	now := time.Now()
	claims := accessClaims{
		ActiveTenantID: activeTenantID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies signature and expiry and returns the embedded claims
func (s *TokenService) Validate(tokenString string) (*domain.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token has no key id")
		}
		return s.keys.VerificationKey(kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.AuthExpired, "token expired", err)
		}
		return nil, apperr.Wrap(apperr.AuthInvalid, "invalid token", err)
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, apperr.New(apperr.AuthInvalid, "invalid token")
	}

	result := &domain.TokenClaims{
		UserID:         claims.Subject,
		ActiveTenantID: claims.ActiveTenantID,
		Role:           claims.Role,
	}
	if claims.ExpiresAt != nil {
		result.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		result.Iat = claims.IssuedAt.Unix()
	}

	return result, nil
}

// Expiry returns the configured access-token lifetime
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}
