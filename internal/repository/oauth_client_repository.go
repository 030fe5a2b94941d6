package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// oauthClientRepository implements OAuthClientRepository interface
type oauthClientRepository struct {
	db *database.Postgres
}

// NewOAuthClientRepository creates a new OAuth client repository
func NewOAuthClientRepository(db *database.Postgres) OAuthClientRepository {
	return &oauthClientRepository{db: db}
}

// Create stores a dynamically registered client
func (r *oauthClientRepository) Create(ctx context.Context, client *domain.OAuthClient) error {
	query := `
		INSERT INTO oauth_clients (id, client_secret_hash, name, redirect_uris, grant_types, scopes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		client.ID,
		client.ClientSecretHash,
		client.Name,
		pq.Array(client.RedirectURIs),
		pq.Array(client.GrantTypes),
		pq.Array(client.Scopes),
		client.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("oauth client %s already exists: %w", client.ID, ErrDuplicateClient)
			}
		}
		return fmt.Errorf("failed to create oauth client: %w", err)
	}

	return nil
}

// GetByID retrieves a registered client
func (r *oauthClientRepository) GetByID(ctx context.Context, id string) (*domain.OAuthClient, error) {
	query := `
		SELECT id, client_secret_hash, name, redirect_uris, grant_types, scopes, created_at
		FROM oauth_clients
		WHERE id = $1
	`

	client := &domain.OAuthClient{}
	err := r.db.DB.QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.ClientSecretHash,
		&client.Name,
		pq.Array(&client.RedirectURIs),
		pq.Array(&client.GrantTypes),
		pq.Array(&client.Scopes),
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("oauth client %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get oauth client: %w", err)
	}

	return client, nil
}
