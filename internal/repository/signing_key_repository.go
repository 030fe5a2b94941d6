package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// signingKeyRepository implements SigningKeyRepository interface
type signingKeyRepository struct {
	db *database.Postgres
}

// NewSigningKeyRepository creates a new signing key repository
func NewSigningKeyRepository(db *database.Postgres) SigningKeyRepository {
	return &signingKeyRepository{db: db}
}

// Insert persists a new key pair
func (r *signingKeyRepository) Insert(ctx context.Context, key *domain.SigningKey) error {
	query := `
		INSERT INTO signing_keys (kid, private_pem, public_pem, is_signing, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		key.Kid,
		key.PrivatePEM,
		key.PublicPEM,
		key.IsSigning,
		key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signing key: %w", err)
	}

	return nil
}

// List returns all persisted keys, newest first
func (r *signingKeyRepository) List(ctx context.Context) ([]*domain.SigningKey, error) {
	query := `
		SELECT kid, private_pem, public_pem, is_signing, created_at
		FROM signing_keys
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list signing keys: %w", err)
	}
	defer rows.Close()

	var keys []*domain.SigningKey
	for rows.Next() {
		key := &domain.SigningKey{}
		if err := rows.Scan(&key.Kid, &key.PrivatePEM, &key.PublicPEM, &key.IsSigning, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signing key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signing keys: %w", err)
	}

	return keys, nil
}

// MarkVerifyOnly retires a key from signing while keeping it for verification
func (r *signingKeyRepository) MarkVerifyOnly(ctx context.Context, kid string) error {
	query := `UPDATE signing_keys SET is_signing = FALSE WHERE kid = $1`

	_, err := r.db.DB.ExecContext(ctx, query, kid)
	if err != nil {
		return fmt.Errorf("failed to mark key verify-only: %w", err)
	}

	return nil
}

// Delete removes a retired key
func (r *signingKeyRepository) Delete(ctx context.Context, kid string) error {
	query := `DELETE FROM signing_keys WHERE kid = $1`

	_, err := r.db.DB.ExecContext(ctx, query, kid)
	if err != nil {
		return fmt.Errorf("failed to delete signing key: %w", err)
	}

	return nil
}
