package domain

import "time"

// Tenant is the organisational scope for users, OAuth credentials, and
// tool overrides.
type Tenant struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Domain      *string   `json:"domain,omitempty" db:"domain"`
	Plan        string    `json:"plan" db:"plan"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TenantUser is a membership row. tenant_users is the source of truth for
// membership; the oldest membership is the user's primary tenant.
type TenantUser struct {
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TenantOAuthCredentials are per-tenant upstream OAuth app credentials.
// They take precedence over process-wide environment credentials.
type TenantOAuthCredentials struct {
	TenantID     string   `json:"tenant_id" db:"tenant_id"`
	Provider     string   `json:"provider" db:"provider"`
	ClientID     string   `json:"client_id" db:"client_id"`
	ClientSecret string   `json:"-" db:"client_secret"`
	RedirectURI  string   `json:"redirect_uri" db:"redirect_uri"`
	Scopes       []string `json:"scopes" db:"scopes"`
	ConfiguredBy string   `json:"configured_by" db:"configured_by"`
}
