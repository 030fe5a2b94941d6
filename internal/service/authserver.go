package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

const (
	authorizationCodeTTL = 60 * time.Second
	refreshTokenTTL      = 30 * 24 * time.Hour
	refreshTokenBytes    = 32
	authorizationCodeLen = 16 // bytes, hex-encoded on the wire
)

// RFC6749Code maps an error kind to the RFC 6749 §5.2 error code
func RFC6749Code(kind apperr.Kind) string {
	switch kind {
	case apperr.InvalidInput, apperr.InvalidFormat:
		return "invalid_request"
	case apperr.AuthInvalid, apperr.AuthExpired, apperr.AuthRequired, apperr.NotFound:
		return "invalid_grant"
	case apperr.PermissionDenied:
		return "unauthorized_client"
	case apperr.MethodNotFound:
		return "unsupported_grant_type"
	default:
		return "server_error"
	}
}

// AuthorizationServer implements the inbound OAuth 2.0 surface used by
// MCP and web clients: authorize, token, and validate-and-refresh.
type AuthorizationServer struct {
	clients       *ClientRegistry
	states        repository.AuthStateRepository
	refreshTokens repository.RefreshTokenRepository
	users         repository.UserRepository
	tenants       repository.TenantRepository
	tokens        *TokenService
	logger        *zap.Logger
}

// NewAuthorizationServer wires the authorization server
func NewAuthorizationServer(
	clients *ClientRegistry,
	states repository.AuthStateRepository,
	refreshTokens repository.RefreshTokenRepository,
	users repository.UserRepository,
	tenants repository.TenantRepository,
	tokens *TokenService,
	logger *zap.Logger,
) *AuthorizationServer {
	return &AuthorizationServer{
		clients:       clients,
		states:        states,
		refreshTokens: refreshTokens,
		users:         users,
		tenants:       tenants,
		tokens:        tokens,
		logger:        logger,
	}
}

// Authorize validates an authorization request for an authenticated
// session and returns the redirect URL carrying the code. PKCE S256 is
// mandatory.
func (s *AuthorizationServer) Authorize(ctx context.Context, req *dto.AuthorizeRequest, userID, tenantID string) (string, error) {
	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		return "", err
	}

	if !client.AllowsRedirect(req.RedirectURI) {
		return "", apperr.New(apperr.InvalidInput, "redirect_uri not registered for client")
	}
	if req.ResponseType != "code" {
		return "", apperr.New(apperr.InvalidInput, "unsupported response_type")
	}
	if req.CodeChallenge == "" {
		return "", apperr.New(apperr.InvalidInput, "code_challenge is required")
	}
	if req.CodeChallengeMethod != "S256" {
		return "", apperr.New(apperr.InvalidInput, "only the S256 code_challenge_method is supported")
	}

	code, err := utils.RandomHex(authorizationCodeLen)
	if err != nil {
		return "", err
	}

	record := &domain.AuthorizationState{
		State:         code,
		Provider:      client.ID,
		UserID:        &userID,
		RedirectURI:   req.RedirectURI,
		CodeChallenge: &req.CodeChallenge,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(authorizationCodeTTL),
	}
	if tenantID != "" {
		record.TenantID = &tenantID
	}
	if req.Scope != "" {
		record.Scope = &req.Scope
	}

	if err := s.states.Store(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, "invalid redirect_uri", err)
	}
	q := redirect.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	redirect.RawQuery = q.Encode()

	return redirect.String(), nil
}

// Token dispatches the token endpoint by grant type
func (s *AuthorizationServer) Token(ctx context.Context, req *dto.TokenRequest) (*domain.TokenPair, error) {
	switch req.GrantType {
	case "authorization_code":
		return s.exchangeCode(ctx, req)
	case "refresh_token":
		return s.refreshGrant(ctx, req)
	case "password":
		return s.passwordGrant(ctx, req)
	case "client_credentials":
		return s.clientCredentialsGrant(ctx, req)
	default:
		return nil, apperr.Newf(apperr.MethodNotFound, "unsupported grant_type: %s", req.GrantType)
	}
}

func (s *AuthorizationServer) exchangeCode(ctx context.Context, req *dto.TokenRequest) (*domain.TokenPair, error) {
	client, err := s.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant("authorization_code") {
		return nil, apperr.New(apperr.PermissionDenied, "client may not use the authorization_code grant")
	}

	record, err := s.states.Consume(ctx, req.Code, client.ID, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "invalid authorization code")
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	if record.RedirectURI != req.RedirectURI {
		return nil, apperr.New(apperr.AuthInvalid, "redirect_uri mismatch")
	}

	// PKCE is enforced whenever the original authorization carried a
	// challenge; for public clients it always does.
	if record.CodeChallenge != nil {
		if req.CodeVerifier == "" {
			return nil, apperr.New(apperr.AuthInvalid, "code_verifier is required")
		}
		if !utils.VerifyS256(req.CodeVerifier, *record.CodeChallenge) {
			return nil, apperr.New(apperr.AuthInvalid, "code_verifier does not match challenge")
		}
	}

	if record.UserID == nil {
		return nil, apperr.New(apperr.AuthInvalid, "invalid authorization code")
	}

	user, err := s.users.GetByID(ctx, *record.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.AuthInvalid, "invalid authorization code", err)
	}

	var tenantID string
	if record.TenantID != nil {
		tenantID = *record.TenantID
	}
	var scope string
	if record.Scope != nil {
		scope = *record.Scope
	}

	return s.issuePair(ctx, user, client.ID, tenantID, scope)
}

func (s *AuthorizationServer) refreshGrant(ctx context.Context, req *dto.TokenRequest) (*domain.TokenPair, error) {
	client, err := s.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant("refresh_token") {
		return nil, apperr.New(apperr.PermissionDenied, "client may not use the refresh_token grant")
	}
	if req.RefreshToken == "" {
		return nil, apperr.New(apperr.InvalidInput, "refresh_token is required")
	}

	hash := hashRefreshToken(req.RefreshToken)
	stored, err := s.refreshTokens.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "invalid refresh token")
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	if stored.ClientID != client.ID {
		return nil, apperr.New(apperr.AuthInvalid, "invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, apperr.New(apperr.AuthExpired, "refresh token expired")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.AuthInvalid, "invalid refresh token", err)
	}
	if !user.IsActive() {
		return nil, apperr.New(apperr.PermissionDenied, "account is not active")
	}

	// Rotation: the presented token dies with this exchange.
	if err := s.refreshTokens.DeleteByTokenHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	var tenantID string
	if stored.TenantID != nil {
		tenantID = *stored.TenantID
	}

	return s.issuePair(ctx, user, client.ID, tenantID, "")
}

func (s *AuthorizationServer) passwordGrant(ctx context.Context, req *dto.TokenRequest) (*domain.TokenPair, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperr.New(apperr.InvalidInput, "username and password are required")
	}

	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "invalid credentials")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.ExternalAuthOnly() || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperr.New(apperr.AuthInvalid, "invalid credentials")
	}
	if !user.IsActive() {
		return nil, apperr.New(apperr.PermissionDenied, "account is not active")
	}

	var tenantID string
	if tenant, err := s.tenants.PrimaryTenantForUser(ctx, user.ID); err == nil {
		tenantID = tenant.ID
	}

	access, err := s.tokens.Mint(user.ID, tenantID, user.Role)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
	}, nil
}

func (s *AuthorizationServer) clientCredentialsGrant(ctx context.Context, req *dto.TokenRequest) (*domain.TokenPair, error) {
	client, err := s.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrant("client_credentials") {
		return nil, apperr.New(apperr.PermissionDenied, "client may not use the client_credentials grant")
	}

	access, err := s.tokens.Mint(client.ID, "", domain.RoleUser)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
		Scope:       req.Scope,
	}, nil
}

// ValidateAndRefresh checks an access token and optionally rolls it with
// the same active tenant. Used by long-lived MCP clients.
func (s *AuthorizationServer) ValidateAndRefresh(ctx context.Context, accessToken string, refresh bool) (*dto.ValidateRefreshResponse, error) {
	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		return &dto.ValidateRefreshResponse{Valid: false}, nil
	}

	resp := &dto.ValidateRefreshResponse{
		Valid:     true,
		UserID:    claims.UserID,
		TenantID:  claims.ActiveTenantID,
		ExpiresAt: claims.Exp,
	}

	if refresh {
		access, err := s.tokens.Mint(claims.UserID, claims.ActiveTenantID, claims.Role)
		if err != nil {
			return nil, err
		}
		resp.AccessToken = access
		resp.ExpiresIn = int(s.tokens.Expiry().Seconds())
	}

	return resp, nil
}

func (s *AuthorizationServer) authenticateClient(ctx context.Context, req *dto.TokenRequest) (*domain.OAuthClient, error) {
	if req.ClientID == "" {
		return nil, apperr.New(apperr.InvalidInput, "client_id is required")
	}
	if req.ClientSecret != "" {
		return s.clients.Authenticate(ctx, req.ClientID, req.ClientSecret)
	}
	// Public client: identity only, PKCE carries the proof.
	return s.clients.Get(ctx, req.ClientID)
}

func (s *AuthorizationServer) issuePair(ctx context.Context, user *domain.User, clientID, tenantID, scope string) (*domain.TokenPair, error) {
	access, err := s.tokens.Mint(user.ID, tenantID, user.Role)
	if err != nil {
		return nil, err
	}

	refresh, err := utils.RandomHex(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	stored := &domain.RefreshToken{
		UserID:    user.ID,
		ClientID:  clientID,
		TokenHash: hashRefreshToken(refresh),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if tenantID != "" {
		stored.TenantID = &tenantID
	}

	if err := s.refreshTokens.Create(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.Expiry().Seconds()),
		Scope:        scope,
	}, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
