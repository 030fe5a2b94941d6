package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/utils"
)

var defaultGrantTypes = []string{"authorization_code", "refresh_token"}

var supportedGrantTypes = map[string]struct{}{
	"authorization_code": {},
	"refresh_token":      {},
	"client_credentials": {},
	"password":           {},
}

// ClientRegistry implements RFC 7591 dynamic client registration
type ClientRegistry struct {
	clients repository.OAuthClientRepository
}

// NewClientRegistry creates a client registry
func NewClientRegistry(clients repository.OAuthClientRepository) *ClientRegistry {
	return &ClientRegistry{clients: clients}
}

// Register validates and stores a new client, returning the plaintext
// secret exactly once
func (r *ClientRegistry) Register(ctx context.Context, req *dto.ClientRegistrationRequest) (*dto.ClientRegistrationResponse, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "at least one redirect_uri is required")
	}
	for _, uri := range req.RedirectURIs {
		if !utils.ValidateRedirectURI(uri) {
			return nil, apperr.Newf(apperr.InvalidInput, "redirect_uri scheme not allowed: %s", uri)
		}
	}

	grants := req.GrantTypes
	if len(grants) == 0 {
		grants = defaultGrantTypes
	}
	for _, g := range grants {
		if _, ok := supportedGrantTypes[g]; !ok {
			return nil, apperr.Newf(apperr.InvalidInput, "unsupported grant type: %s", g)
		}
	}

	secret, err := utils.RandomHex(32)
	if err != nil {
		return nil, err
	}
	secretHash, err := utils.HashPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash client secret: %w", err)
	}

	var scopes []string
	if req.Scope != "" {
		scopes = splitScopes(req.Scope)
	}

	client := &domain.OAuthClient{
		ID:               uuid.New().String(),
		ClientSecretHash: secretHash,
		Name:             req.ClientName,
		RedirectURIs:     req.RedirectURIs,
		GrantTypes:       grants,
		Scopes:           scopes,
		CreatedAt:        time.Now(),
	}

	if err := r.clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to store client: %w", err)
	}

	return &dto.ClientRegistrationResponse{
		ClientID:              client.ID,
		ClientSecret:          secret,
		ClientName:            client.Name,
		RedirectURIs:          client.RedirectURIs,
		GrantTypes:            client.GrantTypes,
		Scope:                 req.Scope,
		ClientIDIssuedAt:      client.CreatedAt.Unix(),
		ClientSecretExpiresAt: 0,
	}, nil
}

// Get looks up a client without authenticating it
func (r *ClientRegistry) Get(ctx context.Context, clientID string) (*domain.OAuthClient, error) {
	client, err := r.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.AuthInvalid, "unknown client")
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return client, nil
}

// Authenticate verifies client credentials
func (r *ClientRegistry) Authenticate(ctx context.Context, clientID, clientSecret string) (*domain.OAuthClient, error) {
	client, err := r.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if !utils.CheckPasswordHash(clientSecret, client.ClientSecretHash) {
		return nil, apperr.New(apperr.AuthInvalid, "invalid client credentials")
	}

	return client, nil
}

func splitScopes(scope string) []string {
	return strings.Fields(scope)
}
