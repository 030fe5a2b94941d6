package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// CallbackHandler drives the outbound provider OAuth surface: building
// authorization URLs and receiving the provider redirect.
type CallbackHandler struct {
	upstream    *service.UpstreamOAuth
	frontendURL string
}

// NewCallbackHandler creates a callback handler
func NewCallbackHandler(upstream *service.UpstreamOAuth, frontendURL string) *CallbackHandler {
	return &CallbackHandler{upstream: upstream, frontendURL: frontendURL}
}

// AuthorizationURL handles GET /api/oauth/auth/:provider/:user_id. The
// caller must be the named user or an admin acting for them.
func (h *CallbackHandler) AuthorizationURL(c *gin.Context) {
	provider := c.Param("provider")
	userID := c.Param("user_id")

	caller := CallerID(c)
	role := CallerRole(c)
	if caller != userID && role != domain.RoleAdmin && role != domain.RoleSuperAdmin {
		respondError(c, apperr.New(apperr.PermissionDenied, "cannot start a flow for another user"))
		return
	}

	authURL, err := h.upstream.BuildAuthorizationURL(
		c.Request.Context(), userID, CallerTenantID(c), provider, c.Query("deep_link"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":          provider,
		"authorization_url": authURL,
	})
}

// Callback handles GET /api/oauth/callback/:provider. On success the
// browser is sent to the mobile deep link, the configured frontend's
// oauth-callback page, or a plain success page, in that order. Failures
// go to the same frontend page with success=false and a coarse reason,
// never internal detail.
func (h *CallbackHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")

	if errParam := c.Query("error"); errParam != "" {
		h.fail(c, provider, "oauth_failed")
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.fail(c, provider, "invalid_state")
		return
	}

	result, err := h.upstream.HandleCallback(c.Request.Context(), provider, code, state)
	if err != nil {
		h.fail(c, provider, callbackReason(err))
		return
	}

	switch {
	case result.MobileRedirectURL != "":
		c.Redirect(http.StatusFound, result.MobileRedirectURL)
	case h.frontendURL != "":
		q := url.Values{"provider": {result.Provider}, "success": {"true"}}
		c.Redirect(http.StatusFound, h.frontendURL+"/oauth-callback?"+q.Encode())
	default:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(
			"<html><body><h1>Connected</h1><p>%s is now linked. You can close this window.</p></body></html>",
			result.Provider)))
	}
}

// fail redirects the browser to the frontend callback page with the
// failure reason, or renders a static error page when no frontend is
// configured.
func (h *CallbackHandler) fail(c *gin.Context, provider, reason string) {
	if h.frontendURL != "" {
		q := url.Values{
			"provider": {provider},
			"success":  {"false"},
			"error":    {reason},
		}
		c.Redirect(http.StatusFound, h.frontendURL+"/oauth-callback?"+q.Encode())
		return
	}

	c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(fmt.Sprintf(
		"<html><body><h1>Connection failed</h1><p>Could not link %s (%s). You can close this window.</p></body></html>",
		provider, reason)))
}

// callbackReason collapses a callback failure to the small set of
// reasons the frontend understands
func callbackReason(err error) string {
	msg := apperr.MessageOf(err)
	switch apperr.KindOf(err) {
	case apperr.AuthExpired:
		return "session_expired"
	case apperr.AuthInvalid:
		if strings.Contains(msg, "state") {
			return "invalid_state"
		}
		return "token_exchange_failed"
	case apperr.NotFound:
		return "user_not_found"
	case apperr.InvalidInput:
		if strings.Contains(msg, "tenant") {
			return "tenant_missing"
		}
		return "oauth_failed"
	default:
		return "oauth_failed"
	}
}
