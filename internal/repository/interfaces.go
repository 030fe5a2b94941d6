package repository

import (
	"context"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus, approvedBy *string) error
	UpdateLastActive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TenantRepository defines methods for tenants and memberships
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	AddMember(ctx context.Context, member *domain.TenantUser) error
	MemberRole(ctx context.Context, tenantID, userID string) (domain.Role, error)
	PrimaryTenantForUser(ctx context.Context, userID string) (*domain.Tenant, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Tenant, error)
}

// TenantCredentialsRepository stores per-tenant upstream OAuth credentials
type TenantCredentialsRepository interface {
	Upsert(ctx context.Context, creds *domain.TenantOAuthCredentials) error
	Get(ctx context.Context, tenantID, provider string) (*domain.TenantOAuthCredentials, error)
}

// OAuthClientRepository stores dynamically registered clients
type OAuthClientRepository interface {
	Create(ctx context.Context, client *domain.OAuthClient) error
	GetByID(ctx context.Context, id string) (*domain.OAuthClient, error)
}

// AuthStateRepository owns single-use authorization states. Consume is
// atomic: it claims the row and returns it, or returns ErrNotFound for
// every failure cause.
type AuthStateRepository interface {
	Store(ctx context.Context, state *domain.AuthorizationState) error
	Consume(ctx context.Context, state, provider string, now time.Time) (*domain.AuthorizationState, error)
	DeleteExpired(ctx context.Context, now time.Time) error
}

// UserTokenRepository owns upstream OAuth tokens and the mirrored
// provider_connections boolean of record
type UserTokenRepository interface {
	Upsert(ctx context.Context, token *domain.UserOAuthToken) error
	Get(ctx context.Context, userID, tenantID, provider string) (*domain.UserOAuthToken, error)
	Delete(ctx context.Context, userID, tenantID, provider string) error
	ListForUser(ctx context.Context, userID string) ([]*domain.UserOAuthToken, error)
	RegisterConnection(ctx context.Context, conn *domain.ProviderConnection) error
	RemoveConnection(ctx context.Context, userID, tenantID, provider string) error
	GetConnection(ctx context.Context, userID, tenantID, provider string) (*domain.ProviderConnection, error)
	ListConnections(ctx context.Context, userID, tenantID string) ([]*domain.ProviderConnection, error)
}

// RefreshTokenRepository stores rotating refresh tokens issued by the
// authorization server (hash only)
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) error
}

// SigningKeyRepository persists the RS256 key set
type SigningKeyRepository interface {
	Insert(ctx context.Context, key *domain.SigningKey) error
	List(ctx context.Context) ([]*domain.SigningKey, error)
	MarkVerifyOnly(ctx context.Context, kid string) error
	Delete(ctx context.Context, kid string) error
}

// ToolOverrideRepository stores per-tenant tool enable/disable overrides
type ToolOverrideRepository interface {
	Upsert(ctx context.Context, override *domain.ToolOverride) error
	ListForTenant(ctx context.Context, tenantID string) ([]*domain.ToolOverride, error)
	Delete(ctx context.Context, tenantID, toolName string) error
}

// AuditRepository appends tool-invocation audit rows
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
}

// SettingsRepository is a key/value store for system settings
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// AdminTokenRepository stores hashed service tokens for admin automation
type AdminTokenRepository interface {
	Create(ctx context.Context, token *domain.AdminToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AdminToken, error)
	Touch(ctx context.Context, id string) error
}
