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

// adminTokenRepository implements AdminTokenRepository interface
type adminTokenRepository struct {
	db *database.Postgres
}

// NewAdminTokenRepository creates a new admin token repository
func NewAdminTokenRepository(db *database.Postgres) AdminTokenRepository {
	return &adminTokenRepository{db: db}
}

// Create stores a hashed service token
func (r *adminTokenRepository) Create(ctx context.Context, token *domain.AdminToken) error {
	query := `
		INSERT INTO admin_tokens (id, service_name, token_hash, permissions, is_super_admin, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.ServiceName,
		token.TokenHash,
		pq.Array(token.Permissions),
		token.IsSuperAdmin,
		token.CreatedAt,
		token.ExpiresAt,
		token.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves an active admin token by hash
func (r *adminTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AdminToken, error) {
	query := `
		SELECT id, service_name, token_hash, permissions, is_super_admin, created_at, expires_at, last_used_at, is_active
		FROM admin_tokens
		WHERE token_hash = $1 AND is_active = TRUE
	`

	token := &domain.AdminToken{}
	var expiresAt, lastUsedAt sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.ServiceName,
		&token.TokenHash,
		pq.Array(&token.Permissions),
		&token.IsSuperAdmin,
		&token.CreatedAt,
		&expiresAt,
		&lastUsedAt,
		&token.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get admin token: %w", err)
	}

	if expiresAt.Valid {
		token.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		token.LastUsedAt = &lastUsedAt.Time
	}

	return token, nil
}

// Touch records token usage
func (r *adminTokenRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE admin_tokens SET last_used_at = $1 WHERE id = $2`

	_, err := r.db.DB.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch admin token: %w", err)
	}

	return nil
}
