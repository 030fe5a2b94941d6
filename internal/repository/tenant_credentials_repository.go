package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// tenantCredentialsRepository implements TenantCredentialsRepository
type tenantCredentialsRepository struct {
	db *database.Postgres
}

// NewTenantCredentialsRepository creates a new tenant credentials repository
func NewTenantCredentialsRepository(db *database.Postgres) TenantCredentialsRepository {
	return &tenantCredentialsRepository{db: db}
}

// Upsert stores or replaces per-tenant upstream OAuth credentials
func (r *tenantCredentialsRepository) Upsert(ctx context.Context, creds *domain.TenantOAuthCredentials) error {
	query := `
		INSERT INTO tenant_oauth_credentials (tenant_id, provider, client_id, client_secret, redirect_uri, scopes, configured_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			redirect_uri = EXCLUDED.redirect_uri,
			scopes = EXCLUDED.scopes,
			configured_by = EXCLUDED.configured_by
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		creds.TenantID,
		creds.Provider,
		creds.ClientID,
		creds.ClientSecret,
		creds.RedirectURI,
		pq.Array(creds.Scopes),
		creds.ConfiguredBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant credentials: %w", err)
	}

	return nil
}

// Get retrieves per-tenant credentials for a provider
func (r *tenantCredentialsRepository) Get(ctx context.Context, tenantID, provider string) (*domain.TenantOAuthCredentials, error) {
	query := `
		SELECT tenant_id, provider, client_id, client_secret, redirect_uri, scopes, configured_by
		FROM tenant_oauth_credentials
		WHERE tenant_id = $1 AND provider = $2
	`

	creds := &domain.TenantOAuthCredentials{}
	err := r.db.DB.QueryRowContext(ctx, query, tenantID, provider).Scan(
		&creds.TenantID,
		&creds.Provider,
		&creds.ClientID,
		&creds.ClientSecret,
		&creds.RedirectURI,
		pq.Array(&creds.Scopes),
		&creds.ConfiguredBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant credentials not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant credentials: %w", err)
	}

	return creds, nil
}
