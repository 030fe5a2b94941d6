package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// UsersHandler handles registration, login, and the session surface
type UsersHandler struct {
	users     *service.UserService
	blacklist *service.TokenBlacklistService
	tokens    *service.TokenService
}

// NewUsersHandler creates a users handler
func NewUsersHandler(users *service.UserService, blacklist *service.TokenBlacklistService, tokens *service.TokenService) *UsersHandler {
	return &UsersHandler{users: users, blacklist: blacklist, tokens: tokens}
}

// Register handles POST /api/auth/register
func (h *UsersHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/auth/login. The access token is returned in
// the body and mirrored into the auth_token cookie for browser clients.
func (h *UsersHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie("auth_token", resp.AccessToken, resp.ExpiresIn, "/", "", true, true)

	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout: revoke the presented token for
// the rest of its lifetime and clear the session cookie
func (h *UsersHandler) Logout(c *gin.Context) {
	token := CallerToken(c)
	if token != "" {
		if err := h.blacklist.AddToken(c.Request.Context(), token, h.tokens.Expiry()); err != nil {
			respondError(c, err)
			return
		}
	}

	c.SetCookie("auth_token", "", -1, "/", "", true, true)

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out"})
}

// GetMe handles GET /api/auth/me
func (h *UsersHandler) GetMe(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
