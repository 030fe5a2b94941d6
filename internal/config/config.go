package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	Auth      AuthConfig      `env:",prefix="`
	Security  SecurityConfig  `env:",prefix="`
	Providers ProvidersConfig `env:",prefix=PIERRE_"`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8081"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=pierre"`
	Password string `env:"PASSWORD,default=pierre_password"`
	DBName   string `env:"DB,default=pierre_gateway"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// AuthConfig covers the authorization server and internal token issuance.
type AuthConfig struct {
	// BaseURL is the public origin used for issuer metadata and callbacks.
	BaseURL          string   `env:"BASE_URL,default=http://localhost:8081"`
	FrontendURL      string   `env:"FRONTEND_URL,default="`
	TokenExpiry      Duration `env:"JWT_ACCESS_TOKEN_EXPIRY,default=24h"`
	KeyRetention     Duration `env:"JWT_KEY_RETENTION,default=24h"`
	AutoApproveUsers bool     `env:"AUTO_APPROVE_USERS,default=false"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=60"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	CSRFTokenTTL      Duration `env:"CSRF_TOKEN_TTL,default=30m"`
	OAuthStateTTL     Duration `env:"OAUTH_STATE_TTL,default=10m"`
	DisabledTools     []string `env:"PIERRE_DISABLED_TOOLS,default="`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization,X-CSRF-Token"`
}

// ProviderCredentials holds process-wide OAuth app credentials for one
// upstream provider. Per-tenant credentials stored in the database take
// precedence over these.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID,default="`
	ClientSecret string `env:"CLIENT_SECRET,default="`
	RedirectURI  string `env:"REDIRECT_URI,default="`
}

type ProvidersConfig struct {
	Strava ProviderCredentials `env:",prefix=STRAVA_"`
	Fitbit ProviderCredentials `env:",prefix=FITBIT_"`
	Garmin ProviderCredentials `env:",prefix=GARMIN_"`
	Whoop  ProviderCredentials `env:",prefix=WHOOP_"`
	Coros  ProviderCredentials `env:",prefix=COROS_"`
	Terra  ProviderCredentials `env:",prefix=TERRA_"`
}

// For returns the environment credentials for a provider name.
func (p ProvidersConfig) For(name string) (ProviderCredentials, bool) {
	switch strings.ToLower(name) {
	case "strava":
		return p.Strava, p.Strava.ClientID != ""
	case "fitbit":
		return p.Fitbit, p.Fitbit.ClientID != ""
	case "garmin":
		return p.Garmin, p.Garmin.ClientID != ""
	case "whoop":
		return p.Whoop, p.Whoop.ClientID != ""
	case "coros":
		return p.Coros, p.Coros.ClientID != ""
	case "terra":
		return p.Terra, p.Terra.ClientID != ""
	default:
		return ProviderCredentials{}, false
	}
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the postgres:// form of the connection string, as expected
// by golang-migrate.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.Auth.KeyRetention.Duration < config.Auth.TokenExpiry.Duration {
		return nil, fmt.Errorf("JWT_KEY_RETENTION must be at least JWT_ACCESS_TOKEN_EXPIRY")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
