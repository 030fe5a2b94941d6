package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// TenantHandler handles tenant lifecycle and per-tenant OAuth credentials
type TenantHandler struct {
	tenants   *service.TenantService
	selection *service.ToolSelection
}

// NewTenantHandler creates a tenant handler
func NewTenantHandler(tenants *service.TenantService, selection *service.ToolSelection) *TenantHandler {
	return &TenantHandler{tenants: tenants, selection: selection}
}

// Create handles POST /api/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	tenant, err := h.tenants.Create(c.Request.Context(), CallerID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

// List handles GET /api/tenants: the tenants the caller belongs to
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.tenants.ListForUser(c.Request.Context(), CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

// SetCredentials handles PUT /api/tenants/:tenant_id/credentials/:provider
func (h *TenantHandler) SetCredentials(c *gin.Context) {
	var req dto.TenantCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}
	req.Provider = c.Param("provider")

	if err := h.tenants.SetCredentials(c.Request.Context(), c.Param("tenant_id"), CallerID(c), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "credentials configured"})
}

// ListTools handles GET /api/tenants/:tenant_id/tools: the effective
// tool catalogue for the tenant with override state applied
func (h *TenantHandler) ListTools(c *gin.Context) {
	tools, err := h.selection.EffectiveTools(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

// SetToolOverride handles PUT /api/tenants/:tenant_id/tools/:tool
func (h *TenantHandler) SetToolOverride(c *gin.Context) {
	var req dto.SetToolOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	err := h.selection.SetOverride(
		c.Request.Context(),
		c.Param("tenant_id"),
		c.Param("tool"),
		req.Enabled,
		CallerID(c),
		CallerRole(c),
		req.Reason,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "tool override saved"})
}
