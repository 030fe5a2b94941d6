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

// authStateRepository implements AuthStateRepository interface
type authStateRepository struct {
	db *database.Postgres
}

// NewAuthStateRepository creates a new authorization state repository
func NewAuthStateRepository(db *database.Postgres) AuthStateRepository {
	return &authStateRepository{db: db}
}

// Store inserts a new single-use state record
func (r *authStateRepository) Store(ctx context.Context, state *domain.AuthorizationState) error {
	query := `
		INSERT INTO oauth_client_states (state, provider, user_id, tenant_id, redirect_uri, scope,
			pkce_code_verifier, code_challenge, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
	`

	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		state.State,
		state.Provider,
		state.UserID,
		state.TenantID,
		state.RedirectURI,
		state.Scope,
		state.PKCECodeVerifier,
		state.CodeChallenge,
		state.CreatedAt,
		state.ExpiresAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("state already exists: %w", ErrDuplicateState)
			}
		}
		return fmt.Errorf("failed to store state: %w", err)
	}

	return nil
}

// Consume atomically claims a state row. The single UPDATE ... RETURNING
// guarantees at most one caller ever receives the record. Expired, used,
// unknown, and provider-mismatched states all surface uniformly as
// ErrNotFound.
func (r *authStateRepository) Consume(ctx context.Context, state, provider string, now time.Time) (*domain.AuthorizationState, error) {
	query := `
		UPDATE oauth_client_states
		SET used = TRUE
		WHERE state = $1 AND provider = $2 AND used = FALSE AND expires_at > $3
		RETURNING state, provider, user_id, tenant_id, redirect_uri, scope,
			pkce_code_verifier, code_challenge, created_at, expires_at, used
	`

	record := &domain.AuthorizationState{}
	var userID, tenantID, scope, verifier, challenge sql.NullString

	err := r.db.DB.QueryRowContext(ctx, query, state, provider, now).Scan(
		&record.State,
		&record.Provider,
		&userID,
		&tenantID,
		&record.RedirectURI,
		&scope,
		&verifier,
		&challenge,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.Used,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("state not claimable: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	if userID.Valid {
		record.UserID = &userID.String
	}
	if tenantID.Valid {
		record.TenantID = &tenantID.String
	}
	if scope.Valid {
		record.Scope = &scope.String
	}
	if verifier.Valid {
		record.PKCECodeVerifier = &verifier.String
	}
	if challenge.Valid {
		record.CodeChallenge = &challenge.String
	}

	return record, nil
}

// DeleteExpired sweeps states past their TTL
func (r *authStateRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	query := `DELETE FROM oauth_client_states WHERE expires_at < $1`

	_, err := r.db.DB.ExecContext(ctx, query, now)
	if err != nil {
		return fmt.Errorf("failed to delete expired states: %w", err)
	}

	return nil
}
