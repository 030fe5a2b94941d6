package service

import (
	"context"
	"sync"
	"time"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeSigningKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.SigningKey
}

func newFakeSigningKeyRepo() *fakeSigningKeyRepo {
	return &fakeSigningKeyRepo{keys: make(map[string]*domain.SigningKey)}
}

func (r *fakeSigningKeyRepo) Insert(_ context.Context, key *domain.SigningKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *key
	r.keys[key.Kid] = &copied
	return nil
}

func (r *fakeSigningKeyRepo) List(_ context.Context) ([]*domain.SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.SigningKey, 0, len(r.keys))
	for _, k := range r.keys {
		copied := *k
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeSigningKeyRepo) MarkVerifyOnly(_ context.Context, kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[kid]; ok {
		k.IsSigning = false
	}
	return nil
}

func (r *fakeSigningKeyRepo) Delete(_ context.Context, kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, kid)
	return nil
}

type fakeAuthStateRepo struct {
	mu     sync.Mutex
	states map[string]*domain.AuthorizationState
}

func newFakeAuthStateRepo() *fakeAuthStateRepo {
	return &fakeAuthStateRepo{states: make(map[string]*domain.AuthorizationState)}
}

func (r *fakeAuthStateRepo) Store(_ context.Context, state *domain.AuthorizationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.states[state.State] = &copied
	return nil
}

func (r *fakeAuthStateRepo) Consume(_ context.Context, state, provider string, now time.Time) (*domain.AuthorizationState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.states[state]
	if !ok || record.Used || record.Provider != provider || !record.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	record.Used = true
	copied := *record
	return &copied, nil
}

func (r *fakeAuthStateRepo) DeleteExpired(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, record := range r.states {
		if now.After(record.ExpiresAt) {
			delete(r.states, key)
		}
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateStatus(_ context.Context, id string, status domain.UserStatus, approvedBy *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	u.ApprovedBy = approvedBy
	return nil
}

func (r *fakeUserRepo) UpdateLastActive(_ context.Context, id string) error {
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	members map[string]domain.Role // tenantID+"/"+userID
}

func newFakeTenantRepo(tenants ...*domain.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{
		tenants: make(map[string]*domain.Tenant),
		members: make(map[string]domain.Role),
	}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == tenant.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *fakeTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTenantRepo) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTenantRepo) AddMember(_ context.Context, member *domain.TenantUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[member.TenantID+"/"+member.UserID] = member.Role
	return nil
}

func (r *fakeTenantRepo) MemberRole(_ context.Context, tenantID, userID string) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.members[tenantID+"/"+userID]; ok {
		return role, nil
	}
	return "", repository.ErrNotFound
}

func (r *fakeTenantRepo) PrimaryTenantForUser(_ context.Context, userID string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, role := range r.members {
		_ = role
		if len(key) > len(userID) && key[len(key)-len(userID):] == userID {
			tenantID := key[:len(key)-len(userID)-1]
			if t, ok := r.tenants[tenantID]; ok {
				return t, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTenantRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Tenant, error) {
	t, err := r.PrimaryTenantForUser(ctx, userID)
	if err != nil {
		return nil, nil
	}
	return []*domain.Tenant{t}, nil
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*domain.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{byHash: make(map[string]*domain.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.byHash[token.TokenHash] = &copied
	return nil
}

func (r *fakeRefreshTokenRepo) GetByTokenHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byHash[hash]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRefreshTokenRepo) DeleteByTokenHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, hash)
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) error {
	return nil
}

type fakeOAuthClientRepo struct {
	mu      sync.Mutex
	clients map[string]*domain.OAuthClient
}

func newFakeOAuthClientRepo() *fakeOAuthClientRepo {
	return &fakeOAuthClientRepo{clients: make(map[string]*domain.OAuthClient)}
}

func (r *fakeOAuthClientRepo) Create(_ context.Context, client *domain.OAuthClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client
	return nil
}

func (r *fakeOAuthClientRepo) GetByID(_ context.Context, id string) (*domain.OAuthClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

type fakeToolOverrideRepo struct {
	mu        sync.Mutex
	overrides map[string][]*domain.ToolOverride
}

func newFakeToolOverrideRepo() *fakeToolOverrideRepo {
	return &fakeToolOverrideRepo{overrides: make(map[string][]*domain.ToolOverride)}
}

func (r *fakeToolOverrideRepo) Upsert(_ context.Context, override *domain.ToolOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.overrides[override.TenantID]
	for i, o := range list {
		if o.ToolName == override.ToolName {
			list[i] = override
			return nil
		}
	}
	r.overrides[override.TenantID] = append(list, override)
	return nil
}

func (r *fakeToolOverrideRepo) ListForTenant(_ context.Context, tenantID string) ([]*domain.ToolOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overrides[tenantID], nil
}

func (r *fakeToolOverrideRepo) Delete(_ context.Context, tenantID, toolName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.overrides[tenantID]
	for i, o := range list {
		if o.ToolName == toolName {
			r.overrides[tenantID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Insert(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) Entries() []*domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

type fakeUserTokenRepo struct {
	mu          sync.Mutex
	tokens      map[string]*domain.UserOAuthToken
	connections map[string]*domain.ProviderConnection
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
	return &fakeUserTokenRepo{
		tokens:      make(map[string]*domain.UserOAuthToken),
		connections: make(map[string]*domain.ProviderConnection),
	}
}

func tokenKey(userID, tenantID, provider string) string {
	return userID + "/" + tenantID + "/" + provider
}

func (r *fakeUserTokenRepo) Upsert(_ context.Context, token *domain.UserOAuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[tokenKey(token.UserID, token.TenantID, token.Provider)] = &copied
	return nil
}

func (r *fakeUserTokenRepo) Get(_ context.Context, userID, tenantID, provider string) (*domain.UserOAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[tokenKey(userID, tenantID, provider)]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserTokenRepo) Delete(_ context.Context, userID, tenantID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tokenKey(userID, tenantID, provider)
	if _, ok := r.tokens[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tokens, key)
	return nil
}

func (r *fakeUserTokenRepo) ListForUser(_ context.Context, userID string) ([]*domain.UserOAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.UserOAuthToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserTokenRepo) RegisterConnection(_ context.Context, conn *domain.ProviderConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *conn
	r.connections[tokenKey(conn.UserID, conn.TenantID, conn.Provider)] = &copied
	return nil
}

func (r *fakeUserTokenRepo) RemoveConnection(_ context.Context, userID, tenantID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tokenKey(userID, tenantID, provider)
	if _, ok := r.connections[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.connections, key)
	return nil
}

func (r *fakeUserTokenRepo) GetConnection(_ context.Context, userID, tenantID, provider string) (*domain.ProviderConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.connections[tokenKey(userID, tenantID, provider)]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserTokenRepo) ListConnections(_ context.Context, userID, tenantID string) ([]*domain.ProviderConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ProviderConnection
	for _, c := range r.connections {
		if c.UserID == userID && c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeTenantCredsRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.TenantOAuthCredentials
}

func newFakeTenantCredsRepo() *fakeTenantCredsRepo {
	return &fakeTenantCredsRepo{creds: make(map[string]*domain.TenantOAuthCredentials)}
}

func (r *fakeTenantCredsRepo) Upsert(_ context.Context, creds *domain.TenantOAuthCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[creds.TenantID+"/"+creds.Provider] = creds
	return nil
}

func (r *fakeTenantCredsRepo) Get(_ context.Context, tenantID, provider string) (*domain.TenantOAuthCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creds[tenantID+"/"+provider]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}
