package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// OAuth2Handler exposes the inbound authorization-server surface:
// discovery metadata, JWKS, dynamic registration, authorize, token, and
// validate-and-refresh.
type OAuth2Handler struct {
	server      *service.AuthorizationServer
	clients     *service.ClientRegistry
	keys        *service.KeySet
	baseURL     string
	frontendURL string
}

// NewOAuth2Handler creates the OAuth2 handler. baseURL is the public
// origin used as issuer.
func NewOAuth2Handler(server *service.AuthorizationServer, clients *service.ClientRegistry, keys *service.KeySet, baseURL, frontendURL string) *OAuth2Handler {
	return &OAuth2Handler{
		server:      server,
		clients:     clients,
		keys:        keys,
		baseURL:     baseURL,
		frontendURL: frontendURL,
	}
}

// Metadata handles GET /.well-known/oauth-authorization-server (RFC 8414)
func (h *OAuth2Handler) Metadata(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServerMetadata{
		Issuer:                        h.baseURL,
		AuthorizationEndpoint:         h.baseURL + "/oauth2/authorize",
		TokenEndpoint:                 h.baseURL + "/oauth2/token",
		RegistrationEndpoint:          h.baseURL + "/oauth2/register",
		JWKSURI:                       h.baseURL + "/.well-known/jwks.json",
		ScopesSupported:               []string{"fitness:read", "activities:read", "profile:read"},
		ResponseTypesSupported:        []string{"code"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token", "client_credentials", "password"},
		CodeChallengeMethodsSupported: []string{"S256"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post"},
	})
}

// JWKS handles GET /.well-known/jwks.json and its /oauth2/jwks alias.
// The document is cacheable for an hour and supports conditional gets.
func (h *OAuth2Handler) JWKS(c *gin.Context) {
	doc, etag := h.keys.PublicJWKS()

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("ETag", etag)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// RegisterClient handles POST /oauth2/register (RFC 7591)
func (h *OAuth2Handler) RegisterClient(c *gin.Context) {
	var req dto.ClientRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.OAuthErrorResponse{
			Error:            "invalid_client_metadata",
			ErrorDescription: err.Error(),
		})
		return
	}

	resp, err := h.clients.Register(c.Request.Context(), &req)
	if err != nil {
		respondOAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Authorize handles GET /oauth2/authorize. Without a session the caller
// is sent to the login page with the full authorization request as the
// return target.
func (h *OAuth2Handler) Authorize(c *gin.Context) {
	var req dto.AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondOAuthError(c, err)
		return
	}

	userID := CallerID(c)
	if userID == "" {
		target := h.frontendURL + "/login?return_to=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		return
	}

	redirect, err := h.server.Authorize(c.Request.Context(), &req, userID, CallerTenantID(c))
	if err != nil {
		respondOAuthError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirect)
}

// Token handles POST /oauth2/token and its ROPC alias /oauth/token
func (h *OAuth2Handler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.OAuthErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: err.Error(),
		})
		return
	}

	pair, err := h.server.Token(c.Request.Context(), &req)
	if err != nil {
		respondOAuthError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, pair)
}

// ValidateAndRefresh handles POST /oauth2/validate-and-refresh, used by
// long-lived MCP clients to check and roll their token. The token comes
// from the Authorization header; the body optionally asks for a roll.
func (h *OAuth2Handler) ValidateAndRefresh(c *gin.Context) {
	token := CallerToken(c)
	if token == "" {
		respondError(c, apperr.New(apperr.AuthRequired, "bearer token required"))
		return
	}

	var req dto.ValidateRefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
			})
			return
		}
	}

	resp, err := h.server.ValidateAndRefresh(c.Request.Context(), token, req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
