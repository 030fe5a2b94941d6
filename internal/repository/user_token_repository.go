package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// userTokenRepository implements UserTokenRepository interface
type userTokenRepository struct {
	db *database.Postgres
}

// NewUserTokenRepository creates a new user token repository
func NewUserTokenRepository(db *database.Postgres) UserTokenRepository {
	return &userTokenRepository{db: db}
}

const userTokenColumns = `id, user_id, tenant_id, provider, access_token, refresh_token,
	token_type, scope, expires_at, created_at, updated_at`

// Upsert stores or replaces the token for (user, tenant, provider). The
// unique constraint keeps at most one row per key.
func (r *userTokenRepository) Upsert(ctx context.Context, token *domain.UserOAuthToken) error {
	query := `
		INSERT INTO user_oauth_tokens (id, user_id, tenant_id, provider, access_token, refresh_token,
			token_type, scope, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, tenant_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	now := time.Now()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TenantID,
		token.Provider,
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		token.Scope,
		token.ExpiresAt,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user oauth token: %w", err)
	}

	return nil
}

func scanUserToken(row interface{ Scan(...any) error }) (*domain.UserOAuthToken, error) {
	token := &domain.UserOAuthToken{}
	var refreshToken, scope sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TenantID,
		&token.Provider,
		&token.AccessToken,
		&refreshToken,
		&token.TokenType,
		&scope,
		&expiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refreshToken.Valid {
		token.RefreshToken = &refreshToken.String
	}
	if scope.Valid {
		token.Scope = &scope.String
	}
	if expiresAt.Valid {
		token.ExpiresAt = &expiresAt.Time
	}

	return token, nil
}

// Get fetches the token for (user, tenant, provider)
func (r *userTokenRepository) Get(ctx context.Context, userID, tenantID, provider string) (*domain.UserOAuthToken, error) {
	query := `SELECT ` + userTokenColumns + `
		FROM user_oauth_tokens
		WHERE user_id = $1 AND tenant_id = $2 AND provider = $3`

	token, err := scanUserToken(r.db.DB.QueryRowContext(ctx, query, userID, tenantID, provider))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("oauth token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user oauth token: %w", err)
	}

	return token, nil
}

// Delete removes the token for (user, tenant, provider)
func (r *userTokenRepository) Delete(ctx context.Context, userID, tenantID, provider string) error {
	query := `DELETE FROM user_oauth_tokens WHERE user_id = $1 AND tenant_id = $2 AND provider = $3`

	_, err := r.db.DB.ExecContext(ctx, query, userID, tenantID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete user oauth token: %w", err)
	}

	return nil
}

// ListForUser returns tokens across all tenants (cross-tenant view;
// callers on the dispatch path must use Get with the active tenant)
func (r *userTokenRepository) ListForUser(ctx context.Context, userID string) ([]*domain.UserOAuthToken, error) {
	query := `SELECT ` + userTokenColumns + `
		FROM user_oauth_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user oauth tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.UserOAuthToken
	for rows.Next() {
		token, err := scanUserToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user oauth token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user oauth tokens: %w", err)
	}

	return tokens, nil
}

// RegisterConnection writes the provider connection record
func (r *userTokenRepository) RegisterConnection(ctx context.Context, conn *domain.ProviderConnection) error {
	query := `
		INSERT INTO provider_connections (user_id, tenant_id, provider, connection_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, tenant_id, provider) DO UPDATE SET
			connection_type = EXCLUDED.connection_type,
			metadata = EXCLUDED.metadata
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		conn.UserID,
		conn.TenantID,
		conn.Provider,
		conn.ConnectionType,
		conn.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to register provider connection: %w", err)
	}

	return nil
}

// RemoveConnection deletes the provider connection record
func (r *userTokenRepository) RemoveConnection(ctx context.Context, userID, tenantID, provider string) error {
	query := `DELETE FROM provider_connections WHERE user_id = $1 AND tenant_id = $2 AND provider = $3`

	_, err := r.db.DB.ExecContext(ctx, query, userID, tenantID, provider)
	if err != nil {
		return fmt.Errorf("failed to remove provider connection: %w", err)
	}

	return nil
}

// GetConnection fetches the connection record for (user, tenant, provider)
func (r *userTokenRepository) GetConnection(ctx context.Context, userID, tenantID, provider string) (*domain.ProviderConnection, error) {
	query := `
		SELECT user_id, tenant_id, provider, connection_type, metadata
		FROM provider_connections
		WHERE user_id = $1 AND tenant_id = $2 AND provider = $3
	`

	conn := &domain.ProviderConnection{}
	var metadata sql.NullString

	err := r.db.DB.QueryRowContext(ctx, query, userID, tenantID, provider).Scan(
		&conn.UserID,
		&conn.TenantID,
		&conn.Provider,
		&conn.ConnectionType,
		&metadata,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider connection not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider connection: %w", err)
	}

	if metadata.Valid {
		conn.Metadata = &metadata.String
	}

	return conn, nil
}

// ListConnections lists connections for a user within a tenant
func (r *userTokenRepository) ListConnections(ctx context.Context, userID, tenantID string) ([]*domain.ProviderConnection, error) {
	query := `
		SELECT user_id, tenant_id, provider, connection_type, metadata
		FROM provider_connections
		WHERE user_id = $1 AND tenant_id = $2
		ORDER BY provider ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider connections: %w", err)
	}
	defer rows.Close()

	var conns []*domain.ProviderConnection
	for rows.Next() {
		conn := &domain.ProviderConnection{}
		var metadata sql.NullString

		if err := rows.Scan(&conn.UserID, &conn.TenantID, &conn.Provider, &conn.ConnectionType, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan provider connection: %w", err)
		}
		if metadata.Valid {
			conn.Metadata = &metadata.String
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provider connections: %w", err)
	}

	return conns, nil
}
