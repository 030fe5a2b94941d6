package domain

import "time"

// TokenClaims are the claims carried by internal RS256 access tokens
type TokenClaims struct {
	UserID         string `json:"sub"`
	ActiveTenantID string `json:"active_tenant_id,omitempty"`
	Role           Role   `json:"role"`
	Exp            int64  `json:"exp"`
	Iat            int64  `json:"iat"`
}

// IsExpired checks if the token is expired
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() >= tc.Exp
}

// TokenPair is an RFC 6749 §5.1 token response body
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// RefreshToken is a stored, rotating refresh token issued by the
// authorization server. Only the hash is persisted.
type RefreshToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	TenantID  *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	TokenHash string    `json:"-" db:"token_hash"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserOAuthToken is an upstream provider token for (user, tenant, provider)
type UserOAuthToken struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	Provider     string     `json:"provider" db:"provider"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken *string    `json:"-" db:"refresh_token"`
	TokenType    string     `json:"token_type" db:"token_type"`
	Scope        *string    `json:"scope,omitempty" db:"scope"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ExpiresWithin reports whether the token expires inside the buffer window.
// Tokens without an expiry never report near-expiry.
func (t *UserOAuthToken) ExpiresWithin(buffer time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(buffer).After(*t.ExpiresAt)
}

// ConnectionType distinguishes how a provider connection was established
type ConnectionType string

const (
	ConnectionTypeOAuth     ConnectionType = "oauth"
	ConnectionTypeSynthetic ConnectionType = "synthetic"
	ConnectionTypeManual    ConnectionType = "manual"
)

// ProviderConnection is the boolean of record for "is user X connected to
// provider Y in tenant T". Written whenever a UserOAuthToken is stored.
type ProviderConnection struct {
	UserID         string         `json:"user_id" db:"user_id"`
	TenantID       string         `json:"tenant_id" db:"tenant_id"`
	Provider       string         `json:"provider" db:"provider"`
	ConnectionType ConnectionType `json:"connection_type" db:"connection_type"`
	Metadata       *string        `json:"metadata,omitempty" db:"metadata"`
}
