package domain

import "time"

// OAuthClient is a dynamically registered client of the authorization
// server (RFC 7591). The secret is stored hashed.
type OAuthClient struct {
	ID               string    `json:"client_id" db:"id"`
	ClientSecretHash string    `json:"-" db:"client_secret_hash"`
	Name             string    `json:"client_name" db:"name"`
	RedirectURIs     []string  `json:"redirect_uris" db:"redirect_uris"`
	GrantTypes       []string  `json:"grant_types" db:"grant_types"`
	Scopes           []string  `json:"scopes" db:"scopes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// AllowsGrant reports whether the client may use a grant type
func (c *OAuthClient) AllowsGrant(grant string) bool {
	for _, g := range c.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}

// AllowsRedirect reports whether the redirect URI was registered
func (c *OAuthClient) AllowsRedirect(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// AuthorizationState is a single-use OAuth state record. It backs both
// the inbound authorization-code grant (provider = client id) and the
// outbound upstream flows (provider = provider tag). The state string is
// only a lookup key; the PKCE verifier never leaves the store.
type AuthorizationState struct {
	State            string    `json:"state" db:"state"`
	Provider         string    `json:"provider" db:"provider"`
	UserID           *string   `json:"user_id,omitempty" db:"user_id"`
	TenantID         *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	RedirectURI      string    `json:"redirect_uri" db:"redirect_uri"`
	Scope            *string   `json:"scope,omitempty" db:"scope"`
	PKCECodeVerifier *string   `json:"-" db:"pkce_code_verifier"`
	CodeChallenge    *string   `json:"-" db:"code_challenge"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	ExpiresAt        time.Time `json:"expires_at" db:"expires_at"`
	Used             bool      `json:"used" db:"used"`
}

// SigningKey is a persisted RSA key pair. Exactly one key has IsSigning
// set; retired keys are kept for verification until their retention
// window elapses.
type SigningKey struct {
	Kid        string    `json:"kid" db:"kid"`
	PrivatePEM string    `json:"-" db:"private_pem"`
	PublicPEM  string    `json:"public_pem" db:"public_pem"`
	IsSigning  bool      `json:"is_signing" db:"is_signing"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
