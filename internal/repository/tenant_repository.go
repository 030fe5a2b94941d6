package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// tenantRepository implements TenantRepository interface
type tenantRepository struct {
	db *database.Postgres
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.Postgres) TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = `id, name, slug, domain, plan, owner_user_id, created_at, updated_at`

// Create creates a new tenant
func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, domain, plan, owner_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}

	now := time.Now()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.Domain,
		tenant.Plan,
		tenant.OwnerUserID,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("tenant with slug %s already exists: %w", tenant.Slug, ErrDuplicateSlug)
			}
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	tenant := &domain.Tenant{}
	var domainName sql.NullString

	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&domainName,
		&tenant.Plan,
		&tenant.OwnerUserID,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if domainName.Valid {
		tenant.Domain = &domainName.String
	}

	return tenant, nil
}

// GetByID retrieves a tenant by ID
func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	tenant, err := scanTenant(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant by id: %w", err)
	}

	return tenant, nil
}

// GetBySlug retrieves a tenant by slug
func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`

	tenant, err := scanTenant(r.db.DB.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant with slug %s not found: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}

	return tenant, nil
}

// AddMember adds a user to a tenant
func (r *tenantRepository) AddMember(ctx context.Context, member *domain.TenantUser) error {
	query := `
		INSERT INTO tenant_users (tenant_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`

	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		member.TenantID,
		member.UserID,
		member.Role,
		member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add tenant member: %w", err)
	}

	return nil
}

// MemberRole returns the user's role within a tenant
func (r *tenantRepository) MemberRole(ctx context.Context, tenantID, userID string) (domain.Role, error) {
	query := `SELECT role FROM tenant_users WHERE tenant_id = $1 AND user_id = $2`

	var role domain.Role
	err := r.db.DB.QueryRowContext(ctx, query, tenantID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("membership not found: %w", ErrNotFound)
		}
		return "", fmt.Errorf("failed to get member role: %w", err)
	}

	return role, nil
}

// PrimaryTenantForUser returns the tenant of the user's oldest membership
func (r *tenantRepository) PrimaryTenantForUser(ctx context.Context, userID string) (*domain.Tenant, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.domain, t.plan, t.owner_user_id, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_users tu ON tu.tenant_id = t.id
		WHERE tu.user_id = $1
		ORDER BY tu.created_at ASC
		LIMIT 1
	`

	tenant, err := scanTenant(r.db.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s has no tenant: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get primary tenant: %w", err)
	}

	return tenant, nil
}

// ListForUser returns all tenants the user belongs to, oldest membership first
func (r *tenantRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Tenant, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.domain, t.plan, t.owner_user_id, t.created_at, t.updated_at
		FROM tenants t
		JOIN tenant_users tu ON tu.tenant_id = t.id
		WHERE tu.user_id = $1
		ORDER BY tu.created_at ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for user: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return tenants, nil
}
