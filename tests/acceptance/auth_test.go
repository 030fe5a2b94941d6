package acceptance

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pierre-fitness/pierre-gateway/internal/dto"
)

func (s *Suite) TestRegister_Success() {
	resp := s.postJSON("/api/auth/register", dto.RegisterRequest{
		Email:       "test@example.com",
		Password:    "Password123",
		DisplayName: "Test Runner",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))

	s.NotEmpty(user.ID)
	s.Equal("test@example.com", user.Email)
	s.Equal("Test Runner", user.DisplayName)
	s.Equal("user", user.Role)
	s.Equal("active", user.Status, "auto-approval should activate the account")
	s.NotEmpty(user.CreatedAt)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.registerUser("duplicate@example.com", "Password123")

	resp := s.postJSON("/api/auth/register", dto.RegisterRequest{
		Email:    "Duplicate@Example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("email already registered", errResp.Message)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.postJSON("/api/auth/register", dto.RegisterRequest{
		Email:    "invalid-email",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_WeakPassword() {
	// Long enough, but no uppercase or digit.
	resp := s.postJSON("/api/auth/register", dto.RegisterRequest{
		Email:    "weak@example.com",
		Password: "passwordpassword",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.registerUser("login@example.com", "Password123")

	resp := s.postJSON("/api/auth/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var session dto.LoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&session))

	s.NotEmpty(session.AccessToken)
	s.Equal("Bearer", session.TokenType)
	s.NotZero(session.ExpiresIn)
	s.NotEmpty(session.CSRFToken)
	s.Equal("login@example.com", session.User.Email)

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "auth_token" {
			sessionCookie = cookie
		}
	}
	s.Require().NotNil(sessionCookie, "login should set the auth_token cookie")
	s.Equal(session.AccessToken, sessionCookie.Value)
	s.True(sessionCookie.HttpOnly)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.registerUser("wrongpass@example.com", "CorrectPassword123")

	resp := s.postJSON("/api/auth/login", dto.LoginRequest{
		Email:    "wrongpass@example.com",
		Password: "WrongPassword123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogin_UnknownUser() {
	resp := s.postJSON("/api/auth/login", dto.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_Success() {
	s.registerUser("getme@example.com", "Password123")
	session := s.login("getme@example.com", "Password123")

	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/auth/me", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal("getme@example.com", user.Email)
	s.Equal(session.User.ID, user.ID)
}

func (s *Suite) TestGetMe_NoToken() {
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/auth/me", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_RevokesToken() {
	s.registerUser("logout@example.com", "Password123")
	session := s.login("logout@example.com", "Password123")

	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/api/auth/logout", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var msg dto.MessageResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&msg))
	s.Equal("logged out", msg.Message)

	// The revoked token must no longer authenticate.
	meReq, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/auth/me", nil)
	meReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.AccessToken))

	meResp, err := http.DefaultClient.Do(meReq)
	s.Require().NoError(err)
	defer meResp.Body.Close()

	s.Equal(http.StatusUnauthorized, meResp.StatusCode)
}

func (s *Suite) TestCookieSession_RequiresCSRF() {
	s.registerUser("csrf@example.com", "Password123")
	session := s.login("csrf@example.com", "Password123")

	// Unsafe method over a cookie session without the CSRF header.
	req, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: session.AccessToken})

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)

	// Same request with the token from login goes through.
	req2, _ := http.NewRequest(http.MethodPost, s.BaseURL+"/api/auth/logout", nil)
	req2.AddCookie(&http.Cookie{Name: "auth_token", Value: session.AccessToken})
	req2.Header.Set("X-CSRF-Token", session.CSRFToken)

	resp2, err := http.DefaultClient.Do(req2)
	s.Require().NoError(err)
	defer resp2.Body.Close()

	s.Equal(http.StatusOK, resp2.StatusCode)
}
