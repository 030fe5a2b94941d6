package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

// UserService owns the account lifecycle: registration, login, approval,
// suspension, deletion.
type UserService struct {
	users       repository.UserRepository
	tenants     repository.TenantRepository
	tokens      *TokenService
	csrf        *CSRFService
	autoApprove bool
	logger      *zap.Logger
}

// NewUserService creates a user service. autoApprove activates accounts
// at registration instead of holding them pending.
func NewUserService(
	users repository.UserRepository,
	tenants repository.TenantRepository,
	tokens *TokenService,
	csrf *CSRFService,
	autoApprove bool,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:       users,
		tenants:     tenants,
		tokens:      tokens,
		csrf:        csrf,
		autoApprove: autoApprove,
		logger:      logger,
	}
}

// Register creates an account plus a personal tenant the user owns
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, apperr.New(apperr.InvalidInput, "invalid email format")
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, apperr.New(apperr.InvalidInput,
			"password must be at least 8 characters with uppercase, lowercase, and a number")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	status := domain.UserStatusPending
	if s.autoApprove {
		status = domain.UserStatusActive
	}

	user := &domain.User{
		Email:        utils.SanitizeEmail(req.Email),
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Tier:         "starter",
		Role:         domain.RoleUser,
		Status:       status,
		AuthProvider: "local",
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.New(apperr.InvalidInput, "email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.createPersonalTenant(ctx, user); err != nil {
		s.logger.Error("failed to create personal tenant", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("status", string(user.Status)),
	)

	return userResponse(user), nil
}

// Login authenticates a user and issues the internal token plus a CSRF
// token for cookie-based sessions
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.ExternalAuthOnly() || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperr.New(apperr.AuthInvalid, "invalid email or password")
	}

	switch user.Status {
	case domain.UserStatusActive:
	case domain.UserStatusPending:
		return nil, apperr.New(apperr.PermissionDenied, "account is pending approval")
	default:
		return nil, apperr.New(apperr.PermissionDenied, "account is suspended")
	}

	var tenantID string
	if tenant, err := s.tenants.PrimaryTenantForUser(ctx, user.ID); err == nil {
		tenantID = tenant.ID
	}

	access, err := s.tokens.Mint(user.ID, tenantID, user.Role)
	if err != nil {
		return nil, err
	}

	csrfToken, err := s.csrf.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastActive(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last_active", zap.String("user_id", user.ID), zap.Error(err))
	}

	return &dto.LoginResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
		CSRFToken:   csrfToken,
		User:        *userResponse(user),
	}, nil
}

// Get returns the public view of a user
func (s *UserService) Get(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return userResponse(user), nil
}

// Approve activates a pending account
func (s *UserService) Approve(ctx context.Context, adminID, userID string) error {
	if err := s.users.UpdateStatus(ctx, userID, domain.UserStatusActive, &adminID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return fmt.Errorf("failed to approve user: %w", err)
	}

	s.logger.Info("user approved", zap.String("user_id", userID), zap.String("approved_by", adminID))
	return nil
}

// Suspend blocks an account from authenticating
func (s *UserService) Suspend(ctx context.Context, userID string) error {
	if err := s.users.UpdateStatus(ctx, userID, domain.UserStatusSuspended, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return fmt.Errorf("failed to suspend user: %w", err)
	}
	return nil
}

// Delete removes an account; dependent rows cascade in the database
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.NotFound, "user not found")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// createPersonalTenant gives every new user a tenant so upstream OAuth
// has a scope before any organisation exists
func (s *UserService) createPersonalTenant(ctx context.Context, user *domain.User) error {
	tenant := &domain.Tenant{
		Name:        user.Email,
		Slug:        "u-" + utils.MustRandomHex(6),
		Plan:        "starter",
		OwnerUserID: user.ID,
	}

	if err := s.tenants.Create(ctx, tenant); err != nil {
		return err
	}

	return s.tenants.AddMember(ctx, &domain.TenantUser{
		TenantID: tenant.ID,
		UserID:   user.ID,
		Role:     domain.RoleAdmin,
	})
}

func userResponse(user *domain.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Status:      string(user.Status),
		Tier:        user.Tier,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}
