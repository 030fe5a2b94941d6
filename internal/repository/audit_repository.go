package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/pkg/database"
)

// auditRepository implements AuditRepository interface
type auditRepository struct {
	db *database.Postgres
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.Postgres) AuditRepository {
	return &auditRepository{db: db}
}

// Insert appends an audit row
func (r *auditRepository) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, timestamp, tool_name, user_id, tenant_id, status_code, response_time_ms, error_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.ToolName,
		entry.UserID,
		entry.TenantID,
		entry.StatusCode,
		entry.ResponseTimeMs,
		entry.ErrorKind,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}
