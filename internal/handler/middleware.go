package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// Context keys set by the auth middleware
const (
	ctxUserID     = "user_id"
	ctxTenantID   = "tenant_id"
	ctxRole       = "role"
	ctxAuthMethod = "auth_method"
	ctxToken      = "token"
)

// Auth methods recorded in the request context
const (
	AuthMethodBearer = "bearer"
	AuthMethodCookie = "cookie"
)

var unsafeMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}

// AuthContext resolves the caller's identity without rejecting anonymous
// requests. Credential order: Authorization Bearer header, then the
// auth_token or pierre_session cookie. Cookie-auth'd unsafe methods must
// also present a live X-CSRF-Token.
func AuthContext(tokens *service.TokenService, csrf *service.CSRFService, blacklist *service.TokenBlacklistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		revoked, err := blacklist.IsTokenBlacklisted(c.Request.Context(), token)
		if err == nil && revoked {
			abortUnauthorized(c, "token has been revoked")
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		if method == AuthMethodCookie {
			if _, unsafe := unsafeMethods[c.Request.Method]; unsafe {
				ok, err := csrf.Validate(c.Request.Context(), claims.UserID, c.GetHeader("X-CSRF-Token"))
				if err != nil || !ok {
					c.JSON(http.StatusForbidden, dto.ErrorResponse{
						Error:   "Forbidden",
						Message: "missing or invalid CSRF token",
					})
					c.Abort()
					return
				}
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxTenantID, claims.ActiveTenantID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxAuthMethod, method)
		c.Set(ctxToken, token)

		c.Next()
	}
}

// RequireAuth aborts requests that did not authenticate
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxUserID); !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole aborts requests whose caller lacks one of the given roles
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "insufficient role",
		})
		c.Abort()
	}
}

// CallerID returns the authenticated user id, empty for anonymous callers
func CallerID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		return v.(string)
	}
	return ""
}

// CallerTenantID returns the active tenant id from the token
func CallerTenantID(c *gin.Context) string {
	if v, ok := c.Get(ctxTenantID); ok {
		return v.(string)
	}
	return ""
}

// CallerRole returns the caller's role, defaulting to user
func CallerRole(c *gin.Context) domain.Role {
	if v, ok := c.Get(ctxRole); ok {
		return v.(domain.Role)
	}
	return domain.RoleUser
}

// CallerToken returns the raw presented token
func CallerToken(c *gin.Context) string {
	if v, ok := c.Get(ctxToken); ok {
		return v.(string)
	}
	return ""
}

func extractToken(c *gin.Context) (string, string) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], AuthMethodBearer
		}
		return "", ""
	}

	for _, name := range []string{"auth_token", "pierre_session"} {
		if cookie, err := c.Cookie(name); err == nil && cookie != "" {
			return cookie, AuthMethodCookie
		}
	}

	return "", ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "Unauthorized",
		Message: message,
	})
	c.Abort()
}
