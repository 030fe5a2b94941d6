package acceptance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

const clientRedirectURI = "https://client.example.com/callback"

// noRedirectClient returns redirect responses instead of following them
var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func (s *Suite) TestServerMetadata() {
	resp, err := http.Get(s.BaseURL + "/.well-known/oauth-authorization-server")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var meta dto.ServerMetadata
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&meta))

	s.Equal(s.BaseURL, meta.Issuer)
	s.Equal(s.BaseURL+"/oauth2/authorize", meta.AuthorizationEndpoint)
	s.Equal(s.BaseURL+"/oauth2/token", meta.TokenEndpoint)
	s.Equal(s.BaseURL+"/.well-known/jwks.json", meta.JWKSURI)
	s.Contains(meta.GrantTypesSupported, "authorization_code")
	s.Equal([]string{"S256"}, meta.CodeChallengeMethodsSupported)
	s.Equal([]string{"client_secret_post"}, meta.TokenEndpointAuthMethodsSupported)
}

func (s *Suite) TestJWKS() {
	resp, err := http.Get(s.BaseURL + "/.well-known/jwks.json")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	etag := resp.Header.Get("ETag")
	s.NotEmpty(etag)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&doc))
	s.Require().NotEmpty(doc.Keys)
	s.Equal("RSA", doc.Keys[0]["kty"])
	s.Equal("RS256", doc.Keys[0]["alg"])
	s.NotEmpty(doc.Keys[0]["kid"])

	// Conditional get with the returned ETag.
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/.well-known/jwks.json", nil)
	req.Header.Set("If-None-Match", etag)

	resp2, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp2.Body.Close()

	s.Equal(http.StatusNotModified, resp2.StatusCode)
}

func (s *Suite) TestClientRegistration() {
	resp := s.postJSON("/oauth2/register", dto.ClientRegistrationRequest{
		ClientName:   "Acceptance Client",
		RedirectURIs: []string{clientRedirectURI},
		Scope:        "fitness:read",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var client dto.ClientRegistrationResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&client))

	s.NotEmpty(client.ClientID)
	s.NotEmpty(client.ClientSecret)
	s.Equal("Acceptance Client", client.ClientName)
	s.Equal([]string{"authorization_code", "refresh_token"}, client.GrantTypes)
	s.NotZero(client.ClientIDIssuedAt)
	s.Zero(client.ClientSecretExpiresAt)
}

func (s *Suite) TestClientRegistration_RejectsPlainHTTP() {
	resp := s.postJSON("/oauth2/register", dto.ClientRegistrationRequest{
		ClientName:   "Bad Client",
		RedirectURIs: []string{"http://app.example.com/callback"},
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var oauthErr dto.OAuthErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&oauthErr))
	s.Equal("invalid_request", oauthErr.Error)
}

func (s *Suite) TestAuthorizationCodeFlow() {
	s.registerUser("flow@example.com", "Password123")
	session := s.login("flow@example.com", "Password123")
	client := s.registerClient([]string{"authorization_code", "refresh_token"})

	verifier := "acceptance-test-verifier-0123456789abcdef"
	code := s.authorize(session.AccessToken, client.ClientID, verifier)

	// Exchange the code.
	pair := s.exchangeToken(url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {clientRedirectURI},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"code_verifier": {verifier},
	})

	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
	s.Equal("Bearer", pair.TokenType)
	s.Equal(900, pair.ExpiresIn)

	// The minted token works against the API.
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	meResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer meResp.Body.Close()
	s.Equal(http.StatusOK, meResp.StatusCode)

	// Codes are single use.
	reuse, err := http.PostForm(s.BaseURL+"/oauth2/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {clientRedirectURI},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"code_verifier": {verifier},
	})
	s.Require().NoError(err)
	defer reuse.Body.Close()

	s.Equal(http.StatusBadRequest, reuse.StatusCode)

	var oauthErr dto.OAuthErrorResponse
	s.Require().NoError(json.NewDecoder(reuse.Body).Decode(&oauthErr))
	s.Equal("invalid_grant", oauthErr.Error)
}

func (s *Suite) TestAuthorizationCodeFlow_WrongVerifier() {
	s.registerUser("pkce@example.com", "Password123")
	session := s.login("pkce@example.com", "Password123")
	client := s.registerClient([]string{"authorization_code", "refresh_token"})

	code := s.authorize(session.AccessToken, client.ClientID, "correct-verifier-0123456789abcdef")

	resp, err := http.PostForm(s.BaseURL+"/oauth2/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {clientRedirectURI},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"code_verifier": {"wrong-verifier-0123456789abcdef00"},
	})
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var oauthErr dto.OAuthErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&oauthErr))
	s.Equal("invalid_grant", oauthErr.Error)
}

func (s *Suite) TestRefreshTokenRotation() {
	s.registerUser("rotate@example.com", "Password123")
	session := s.login("rotate@example.com", "Password123")
	client := s.registerClient([]string{"authorization_code", "refresh_token"})

	verifier := "rotation-test-verifier-0123456789abcd"
	code := s.authorize(session.AccessToken, client.ClientID, verifier)
	pair := s.exchangeToken(url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {clientRedirectURI},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"code_verifier": {verifier},
	})

	rotated := s.exchangeToken(url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {pair.RefreshToken},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
	})

	s.NotEmpty(rotated.AccessToken)
	s.NotEmpty(rotated.RefreshToken)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	// The presented refresh token died with the exchange.
	resp, err := http.PostForm(s.BaseURL+"/oauth2/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {pair.RefreshToken},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
	})
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestAuthorize_RequiresPKCE() {
	s.registerUser("nopkce@example.com", "Password123")
	session := s.login("nopkce@example.com", "Password123")
	client := s.registerClient([]string{"authorization_code", "refresh_token"})

	query := url.Values{
		"response_type": {"code"},
		"client_id":     {client.ClientID},
		"redirect_uri":  {clientRedirectURI},
	}
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/oauth2/authorize?"+query.Encode(), nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := noRedirectClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var oauthErr dto.OAuthErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&oauthErr))
	s.Equal("invalid_request", oauthErr.Error)
}

func (s *Suite) TestAuthorize_AnonymousRedirectsToLogin() {
	client := s.registerClient([]string{"authorization_code", "refresh_token"})

	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {client.ClientID},
		"redirect_uri":          {clientRedirectURI},
		"code_challenge":        {utils.S256Challenge("anonymous-verifier")},
		"code_challenge_method": {"S256"},
	}
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/oauth2/authorize?"+query.Encode(), nil)

	resp, err := noRedirectClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusFound, resp.StatusCode)
	s.True(strings.HasPrefix(resp.Header.Get("Location"), "http://localhost:3000/login?return_to="))
}

func (s *Suite) TestPasswordGrant() {
	s.registerUser("ropc@example.com", "Password123")
	client := s.registerClient([]string{"password"})

	pair := s.exchangeToken(url.Values{
		"grant_type":    {"password"},
		"username":      {"ropc@example.com"},
		"password":      {"Password123"},
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
	})

	s.NotEmpty(pair.AccessToken)
	s.Empty(pair.RefreshToken, "the password grant issues access tokens only")
}

func (s *Suite) TestValidateAndRefresh() {
	s.registerUser("validate@example.com", "Password123")
	session := s.login("validate@example.com", "Password123")

	// The token travels in the Authorization header; no body needed for a
	// plain liveness check.
	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/oauth2/validate-and-refresh", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var result dto.ValidateRefreshResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&result))
	s.True(result.Valid)
	s.Equal(session.User.ID, result.UserID)
	s.Empty(result.AccessToken)

	// Asking for a roll mints a fresh token.
	req2, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/oauth2/validate-and-refresh",
		strings.NewReader(`{"refresh":true}`))
	req2.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req2.Header.Set("Content-Type", "application/json")

	resp2, err := http.DefaultClient.Do(req2)
	s.Require().NoError(err)
	defer resp2.Body.Close()

	s.Equal(http.StatusOK, resp2.StatusCode)

	var rolled dto.ValidateRefreshResponse
	s.Require().NoError(json.NewDecoder(resp2.Body).Decode(&rolled))
	s.True(rolled.Valid)
	s.NotEmpty(rolled.AccessToken)

	// Garbage bearer tokens are rejected by the auth middleware.
	req3, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/oauth2/validate-and-refresh", nil)
	req3.Header.Set("Authorization", "Bearer not-a-token")

	resp3, err := http.DefaultClient.Do(req3)
	s.Require().NoError(err)
	defer resp3.Body.Close()

	s.Equal(http.StatusUnauthorized, resp3.StatusCode)
}

// registerClient registers an OAuth client with the given grants
func (s *Suite) registerClient(grantTypes []string) dto.ClientRegistrationResponse {
	resp := s.postJSON("/oauth2/register", dto.ClientRegistrationRequest{
		ClientName:   "Acceptance Client",
		RedirectURIs: []string{clientRedirectURI},
		GrantTypes:   grantTypes,
		Scope:        "fitness:read",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var client dto.ClientRegistrationResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&client))
	return client
}

// authorize runs the authorization request for an authenticated user and
// returns the code from the redirect
func (s *Suite) authorize(accessToken, clientID, verifier string) string {
	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {clientID},
		"redirect_uri":          {clientRedirectURI},
		"scope":                 {"fitness:read"},
		"state":                 {"xyz"},
		"code_challenge":        {utils.S256Challenge(verifier)},
		"code_challenge_method": {"S256"},
	}
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/oauth2/authorize?"+query.Encode(), nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := noRedirectClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusFound, resp.StatusCode)

	redirect, err := url.Parse(resp.Header.Get("Location"))
	s.Require().NoError(err)
	s.Require().True(strings.HasPrefix(redirect.String(), clientRedirectURI))
	s.Equal("xyz", redirect.Query().Get("state"))

	code := redirect.Query().Get("code")
	s.Require().NotEmpty(code)
	return code
}

// exchangeToken posts a token request that is expected to succeed
func (s *Suite) exchangeToken(form url.Values) domain.TokenPair {
	resp, err := http.PostForm(s.BaseURL+"/oauth2/token", form)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("no-store", resp.Header.Get("Cache-Control"))

	var pair domain.TokenPair
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pair))
	return pair
}
