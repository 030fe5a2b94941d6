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

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, tier, role, status, is_admin,
	firebase_uid, auth_provider, created_at, last_active, approved_at, approved_by`

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, tier, role, status, is_admin,
			firebase_uid, auth_provider, created_at, last_active, approved_at, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastActive.IsZero() {
		user.LastActive = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Tier,
		user.Role,
		user.Status,
		user.IsAdmin,
		user.FirebaseUID,
		user.AuthProvider,
		user.CreatedAt,
		user.LastActive,
		user.ApprovedAt,
		user.ApprovedBy,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	var firebaseUID, approvedBy sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Tier,
		&user.Role,
		&user.Status,
		&user.IsAdmin,
		&firebaseUID,
		&user.AuthProvider,
		&user.CreatedAt,
		&user.LastActive,
		&approvedAt,
		&approvedBy,
	)
	if err != nil {
		return nil, err
	}

	if firebaseUID.Valid {
		user.FirebaseUID = &firebaseUID.String
	}
	if approvedAt.Valid {
		user.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		user.ApprovedBy = &approvedBy.String
	}

	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// UpdateStatus transitions the account status. approved_at is set only on
// the pending -> active transition.
func (r *userRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus, approvedBy *string) error {
	query := `
		UPDATE users
		SET status = $2,
			approved_at = CASE WHEN $2 = 'active' AND status = 'pending' THEN NOW() ELSE approved_at END,
			approved_by = CASE WHEN $2 = 'active' AND status = 'pending' THEN $3 ELSE approved_by END
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, status, approvedBy)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

// UpdateLastActive bumps the last-active timestamp
func (r *userRepository) UpdateLastActive(ctx context.Context, id string) error {
	query := `UPDATE users SET last_active = $1 WHERE id = $2`

	_, err := r.db.DB.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}

	return nil
}

// Delete removes the user. Memberships and tokens cascade via foreign keys.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}
