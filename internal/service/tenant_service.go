package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

// TenantService owns tenant creation, membership, and per-tenant
// upstream OAuth credentials.
type TenantService struct {
	tenants   repository.TenantRepository
	creds     repository.TenantCredentialsRepository
	providers *ProviderRegistry
	logger    *zap.Logger
}

// NewTenantService creates a tenant service
func NewTenantService(
	tenants repository.TenantRepository,
	creds repository.TenantCredentialsRepository,
	providers *ProviderRegistry,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenants:   tenants,
		creds:     creds,
		providers: providers,
		logger:    logger,
	}
}

// Create makes a tenant owned by the caller and adds them as admin
func (s *TenantService) Create(ctx context.Context, ownerID string, req *dto.CreateTenantRequest) (*domain.Tenant, error) {
	if !utils.ValidateSlug(req.Slug) {
		return nil, apperr.Newf(apperr.InvalidInput, "invalid tenant slug: %s", req.Slug)
	}

	plan := req.Plan
	if plan == "" {
		plan = "starter"
	}

	tenant := &domain.Tenant{
		Name:        req.Name,
		Slug:        req.Slug,
		Plan:        plan,
		OwnerUserID: ownerID,
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, apperr.Newf(apperr.InvalidInput, "slug already taken: %s", req.Slug)
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	member := &domain.TenantUser{
		TenantID: tenant.ID,
		UserID:   ownerID,
		Role:     domain.RoleAdmin,
	}
	if err := s.tenants.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
	)

	return tenant, nil
}

// ListForUser returns the tenants the user belongs to
func (s *TenantService) ListForUser(ctx context.Context, userID string) ([]*domain.Tenant, error) {
	tenants, err := s.tenants.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// requireAdmin checks the caller holds an admin membership on the tenant
func (s *TenantService) requireAdmin(ctx context.Context, tenantID, userID string) error {
	role, err := s.tenants.MemberRole(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.PermissionDenied, "not a member of this tenant")
		}
		return fmt.Errorf("failed to resolve membership: %w", err)
	}
	if role != domain.RoleAdmin && role != domain.RoleSuperAdmin {
		return apperr.New(apperr.PermissionDenied, "tenant admin role required")
	}
	return nil
}

// SetCredentials stores per-tenant upstream OAuth app credentials,
// which take precedence over process-wide environment credentials
func (s *TenantService) SetCredentials(ctx context.Context, tenantID, userID string, req *dto.TenantCredentialsRequest) error {
	if err := s.requireAdmin(ctx, tenantID, userID); err != nil {
		return err
	}
	if !s.providers.IsSupported(req.Provider) {
		return apperr.Newf(apperr.InvalidInput, "unsupported provider: %s", req.Provider)
	}

	creds := &domain.TenantOAuthCredentials{
		TenantID:     tenantID,
		Provider:     req.Provider,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		Scopes:       req.Scopes,
		ConfiguredBy: userID,
	}

	if err := s.creds.Upsert(ctx, creds); err != nil {
		return fmt.Errorf("failed to store tenant credentials: %w", err)
	}

	s.logger.Info("tenant credentials configured",
		zap.String("tenant_id", tenantID),
		zap.String("provider", req.Provider),
	)

	return nil
}
