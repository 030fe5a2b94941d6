package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// respondError maps a service error to its HTTP shape without leaking
// internal details
func respondError(c *gin.Context, err error) {
	status := service.HTTPStatus(apperr.KindOf(err))
	c.JSON(status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: apperr.MessageOf(err),
	})
}

// respondOAuthError renders the RFC 6749 §5.2 error body used by the
// OAuth endpoints
func respondOAuthError(c *gin.Context, err error) {
	// RFC 6749 §5.2: token-endpoint errors are 400s. 401 is reserved
	// for invalid_client challenges, which this server never issues.
	kind := apperr.KindOf(err)
	status := http.StatusBadRequest
	if kind == apperr.Internal || kind == apperr.Database {
		status = http.StatusInternalServerError
	}

	c.JSON(status, dto.OAuthErrorResponse{
		Error:            service.RFC6749Code(kind),
		ErrorDescription: apperr.MessageOf(err),
	})
}
