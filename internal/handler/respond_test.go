package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
)

func TestRespondOAuthErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		kind   apperr.Kind
		status int
		code   string
	}{
		{apperr.AuthInvalid, http.StatusBadRequest, "invalid_grant"},
		{apperr.AuthExpired, http.StatusBadRequest, "invalid_grant"},
		{apperr.AuthRequired, http.StatusBadRequest, "invalid_grant"},
		{apperr.InvalidInput, http.StatusBadRequest, "invalid_request"},
		{apperr.PermissionDenied, http.StatusBadRequest, "unauthorized_client"},
		{apperr.MethodNotFound, http.StatusBadRequest, "unsupported_grant_type"},
		{apperr.Database, http.StatusInternalServerError, "server_error"},
		{apperr.Internal, http.StatusInternalServerError, "server_error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondOAuthError(c, apperr.New(tc.kind, "boom"))

		assert.Equal(t, tc.status, w.Code, string(tc.kind))

		var body dto.OAuthErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), string(tc.kind))
		assert.Equal(t, tc.code, body.Error, string(tc.kind))
	}
}
