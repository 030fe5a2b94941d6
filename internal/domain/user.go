package domain

import "time"

// Role is the authorization role carried in internal tokens
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// UserStatus is the account lifecycle state
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a user in the system. PasswordHash is empty for users
// that authenticate only through an external identity provider.
type User struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	Tier         string     `json:"tier" db:"tier"`
	Role         Role       `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	FirebaseUID  *string    `json:"firebase_uid,omitempty" db:"firebase_uid"`
	AuthProvider string     `json:"auth_provider" db:"auth_provider"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastActive   time.Time  `json:"last_active" db:"last_active"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy   *string    `json:"approved_by,omitempty" db:"approved_by"`
}

// IsActive reports whether the account can authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// ExternalAuthOnly reports whether the user has no local password
func (u *User) ExternalAuthOnly() bool {
	return u.PasswordHash == ""
}
