package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
)

// AuditService records tool invocations. Writes run off the request
// path; failures are logged and never affect the caller.
type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates an audit service
func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record persists one audit row with its own deadline, detached from the
// request context
func (s *AuditService) Record(entry *domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit entry",
			zap.String("tool", entry.ToolName),
			zap.Error(err),
		)
	}
}
