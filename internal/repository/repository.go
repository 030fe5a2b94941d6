package repository

import (
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User              UserRepository
	Tenant            TenantRepository
	TenantCredentials TenantCredentialsRepository
	OAuthClient       OAuthClientRepository
	AuthState         AuthStateRepository
	UserToken         UserTokenRepository
	RefreshToken      RefreshTokenRepository
	SigningKey        SigningKeyRepository
	ToolOverride      ToolOverrideRepository
	Audit             AuditRepository
	Settings          SettingsRepository
	AdminToken        AdminTokenRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:              NewUserRepository(db),
		Tenant:            NewTenantRepository(db),
		TenantCredentials: NewTenantCredentialsRepository(db),
		OAuthClient:       NewOAuthClientRepository(db),
		AuthState:         NewAuthStateRepository(db),
		UserToken:         NewUserTokenRepository(db),
		RefreshToken:      NewRefreshTokenRepository(db),
		SigningKey:        NewSigningKeyRepository(db),
		ToolOverride:      NewToolOverrideRepository(db),
		Audit:             NewAuditRepository(db),
		Settings:          NewSettingsRepository(db),
		AdminToken:        NewAdminTokenRepository(db),
	}
}
