package repository

import (
	"context"
	"fmt"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// toolOverrideRepository implements ToolOverrideRepository interface
type toolOverrideRepository struct {
	db *database.Postgres
}

// NewToolOverrideRepository creates a new tool override repository
func NewToolOverrideRepository(db *database.Postgres) ToolOverrideRepository {
	return &toolOverrideRepository{db: db}
}

// Upsert stores or replaces a per-tenant tool override
func (r *toolOverrideRepository) Upsert(ctx context.Context, override *domain.ToolOverride) error {
	query := `
		INSERT INTO tool_overrides (tenant_id, tool_name, is_enabled, set_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, tool_name) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			set_by = EXCLUDED.set_by,
			reason = EXCLUDED.reason
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		override.TenantID,
		override.ToolName,
		override.IsEnabled,
		override.SetBy,
		override.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tool override: %w", err)
	}

	return nil
}

// ListForTenant returns all overrides for a tenant
func (r *toolOverrideRepository) ListForTenant(ctx context.Context, tenantID string) ([]*domain.ToolOverride, error) {
	query := `
		SELECT tenant_id, tool_name, is_enabled, set_by, reason
		FROM tool_overrides
		WHERE tenant_id = $1
	`

	rows, err := r.db.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*domain.ToolOverride
	for rows.Next() {
		o := &domain.ToolOverride{}
		if err := rows.Scan(&o.TenantID, &o.ToolName, &o.IsEnabled, &o.SetBy, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan tool override: %w", err)
		}
		overrides = append(overrides, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tool overrides: %w", err)
	}

	return overrides, nil
}

// Delete removes an override, restoring the catalogue default
func (r *toolOverrideRepository) Delete(ctx context.Context, tenantID, toolName string) error {
	query := `DELETE FROM tool_overrides WHERE tenant_id = $1 AND tool_name = $2`

	_, err := r.db.DB.ExecContext(ctx, query, tenantID, toolName)
	if err != nil {
		return fmt.Errorf("failed to delete tool override: %w", err)
	}

	return nil
}
