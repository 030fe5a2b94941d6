package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

// AdminHandler exposes the operator surface: user approval, system
// settings, and admin token provisioning.
type AdminHandler struct {
	users       *service.UserService
	adminTokens repository.AdminTokenRepository
	settings    repository.SettingsRepository
	logger      *zap.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(users *service.UserService, adminTokens repository.AdminTokenRepository, settings repository.SettingsRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		users:       users,
		adminTokens: adminTokens,
		settings:    settings,
		logger:      logger,
	}
}

// AdminTokenAuth authenticates requests carrying a provisioned admin
// token. It accepts callers the session middleware already identified
// as admins, so both auth paths reach the same routes.
func (h *AdminHandler) AdminTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		if role == domain.RoleAdmin || role == domain.RoleSuperAdmin {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "admin credentials required")
			return
		}

		sum := sha256.Sum256([]byte(parts[1]))
		token, err := h.adminTokens.GetByTokenHash(c.Request.Context(), hex.EncodeToString(sum[:]))
		if err != nil {
			abortUnauthorized(c, "invalid admin token")
			return
		}
		if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
			abortUnauthorized(c, "admin token expired")
			return
		}

		if err := h.adminTokens.Touch(c.Request.Context(), token.ID); err != nil {
			h.logger.Warn("failed to record admin token use", zap.Error(err))
		}

		c.Set(ctxUserID, token.ID)
		if token.IsSuperAdmin {
			c.Set(ctxRole, domain.RoleSuperAdmin)
		} else {
			c.Set(ctxRole, domain.RoleAdmin)
		}
		c.Next()
	}
}

// ApproveUser handles POST /admin/users/:user_id/approve
func (h *AdminHandler) ApproveUser(c *gin.Context) {
	if err := h.users.Approve(c.Request.Context(), CallerID(c), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "user approved"})
}

// SuspendUser handles POST /admin/users/:user_id/suspend
func (h *AdminHandler) SuspendUser(c *gin.Context) {
	if err := h.users.Suspend(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "user suspended"})
}

// DeleteUser handles DELETE /admin/users/:user_id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "user deleted"})
}

// GetSetting handles GET /admin/settings/:key
func (h *AdminHandler) GetSetting(c *gin.Context) {
	key := c.Param("key")

	value, err := h.settings.Get(c.Request.Context(), key)
	if err != nil {
		if err == repository.ErrNotFound {
			respondError(c, apperr.Newf(apperr.NotFound, "setting %s not found", key))
			return
		}
		respondError(c, apperr.Wrap(apperr.Database, "failed to load setting", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// SetSetting handles PUT /admin/settings/:key
func (h *AdminHandler) SetSetting(c *gin.Context) {
	var body struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.settings.Set(c.Request.Context(), c.Param("key"), body.Value); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "failed to store setting", err))
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "setting saved"})
}

// CreateAdminToken handles POST /admin/tokens. The plaintext token is
// returned exactly once; only its hash is stored.
func (h *AdminHandler) CreateAdminToken(c *gin.Context) {
	var body struct {
		ServiceName  string   `json:"service_name" binding:"required"`
		Permissions  []string `json:"permissions"`
		IsSuperAdmin bool     `json:"is_super_admin"`
		TTLHours     int      `json:"ttl_hours"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	plaintext, err := utils.RandomHex(32)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Internal, "failed to generate token", err))
		return
	}
	sum := sha256.Sum256([]byte(plaintext))

	token := &domain.AdminToken{
		ServiceName:  body.ServiceName,
		TokenHash:    hex.EncodeToString(sum[:]),
		Permissions:  body.Permissions,
		IsSuperAdmin: body.IsSuperAdmin,
		IsActive:     true,
	}
	if body.TTLHours > 0 {
		expires := time.Now().Add(time.Duration(body.TTLHours) * time.Hour)
		token.ExpiresAt = &expires
	}

	if err := h.adminTokens.Create(c.Request.Context(), token); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "failed to store admin token", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           token.ID,
		"service_name": token.ServiceName,
		"token":        plaintext,
		"expires_at":   token.ExpiresAt,
	})
}
