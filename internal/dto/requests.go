package dto

// RegisterRequest is a user registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is a user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the internal token for web sessions
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	CSRFToken   string       `json:"csrf_token,omitempty"`
	User        UserResponse `json:"user"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	Tier        string `json:"tier,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreateTenantRequest creates a tenant owned by the caller
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
	Plan string `json:"plan"`
}

// TenantCredentialsRequest stores per-tenant upstream OAuth credentials
type TenantCredentialsRequest struct {
	Provider     string   `json:"provider"`
	ClientID     string   `json:"client_id" binding:"required"`
	ClientSecret string   `json:"client_secret" binding:"required"`
	RedirectURI  string   `json:"redirect_uri" binding:"required"`
	Scopes       []string `json:"scopes"`
}

// ClientRegistrationRequest is an RFC 7591 registration body
type ClientRegistrationRequest struct {
	ClientName   string   `json:"client_name" binding:"required"`
	RedirectURIs []string `json:"redirect_uris" binding:"required"`
	GrantTypes   []string `json:"grant_types"`
	Scope        string   `json:"scope"`
}

// ClientRegistrationResponse is the RFC 7591 response; the secret is
// returned exactly once.
type ClientRegistrationResponse struct {
	ClientID              string   `json:"client_id"`
	ClientSecret          string   `json:"client_secret"`
	ClientName            string   `json:"client_name"`
	RedirectURIs          []string `json:"redirect_uris"`
	GrantTypes            []string `json:"grant_types"`
	Scope                 string   `json:"scope,omitempty"`
	ClientIDIssuedAt      int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt int64    `json:"client_secret_expires_at"`
}

// AuthorizeRequest is the OAuth 2.0 authorization request (RFC 6749 §4.1.1
// plus PKCE)
type AuthorizeRequest struct {
	ResponseType        string `form:"response_type"`
	ClientID            string `form:"client_id"`
	RedirectURI         string `form:"redirect_uri"`
	Scope               string `form:"scope"`
	State               string `form:"state"`
	CodeChallenge       string `form:"code_challenge"`
	CodeChallengeMethod string `form:"code_challenge_method"`
}

// TokenRequest is the OAuth 2.0 token request for every supported grant
type TokenRequest struct {
	GrantType    string `form:"grant_type" binding:"required"`
	Code         string `form:"code"`
	RedirectURI  string `form:"redirect_uri"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	CodeVerifier string `form:"code_verifier"`
	RefreshToken string `form:"refresh_token"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	Scope        string `form:"scope"`
}

// OAuthErrorResponse is the RFC 6749 §5.2 error body
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ValidateRefreshRequest is the optional body of validate-and-refresh;
// the token itself travels in the Authorization header
type ValidateRefreshRequest struct {
	Refresh bool `json:"refresh"`
}

// ValidateRefreshResponse reports token liveness
type ValidateRefreshResponse struct {
	Valid       bool   `json:"valid"`
	UserID      string `json:"user_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// ServerMetadata is the RFC 8414 authorization-server metadata document
type ServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// SetToolOverrideRequest toggles one tool for a tenant
type SetToolOverrideRequest struct {
	ToolName string  `json:"tool_name"`
	Enabled  bool    `json:"enabled"`
	Reason   *string `json:"reason,omitempty"`
}

// JSONRPCRequest is one JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// JSONRPCError is the JSON-RPC 2.0 error object
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSONRPCResponse is one JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// RESTEnvelope is the REST tool-response wrapper
type RESTEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// A2APart is one content part of an A2A task result
type A2APart struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Text string `json:"text,omitempty"`
}

// A2AResponse is the agent-to-agent task payload
type A2AResponse struct {
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
	Parts  []A2APart `json:"parts,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// ErrorResponse is the plain REST error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
