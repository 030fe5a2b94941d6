package domain

import "time"

// AdminToken is a long-lived service token for admin automation.
// Only the hash is persisted.
type AdminToken struct {
	ID           string     `json:"id" db:"id"`
	ServiceName  string     `json:"service_name" db:"service_name"`
	TokenHash    string     `json:"-" db:"token_hash"`
	Permissions  []string   `json:"permissions" db:"permissions"`
	IsSuperAdmin bool       `json:"is_super_admin" db:"is_super_admin"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	IsActive     bool       `json:"is_active" db:"is_active"`
}
