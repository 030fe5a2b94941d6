package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// settingsRepository implements SettingsRepository interface
type settingsRepository struct {
	db *database.Postgres
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.Postgres) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get reads a setting value
func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM system_settings WHERE key = $1`

	var value string
	err := r.db.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("setting %s not found: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

// Set writes a setting value
func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := r.db.DB.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}
