package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/config"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/handler"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
	"github.com/pierre-fitness/pierre-gateway/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// handlers bundles every HTTP handler the router mounts
type handlers struct {
	users    *handler.UsersHandler
	oauth2   *handler.OAuth2Handler
	callback *handler.CallbackHandler
	tools    *handler.ToolsHandler
	tenants  *handler.TenantHandler
	admin    *handler.AdminHandler
	ws       *handler.WSHandler
}

func NewApp(ctx context.Context, infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	keys := service.NewKeySet(repos.SigningKey, cfg.Auth.KeyRetention.Duration, logger)
	if err := keys.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap signing keys: %w", err)
	}

	tokenService := service.NewTokenService(keys, cfg.Auth.TokenExpiry.Duration)
	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	csrfService := service.NewCSRFService(infra.Redis(), cfg.Security.CSRFTokenTTL.Duration)
	rateLimiter := service.NewRateLimiter(infra.Redis())
	cache := service.NewCache(infra.Redis(), logger)
	bus := service.NewNotificationBus(logger)
	progress := service.NewProgressBus(bus)
	healthChecker := NewHealthChecker(infra)

	providers := service.NewProviderRegistry()
	upstream := service.NewUpstreamOAuth(
		providers,
		repos.AuthState,
		repos.UserToken,
		repos.TenantCredentials,
		repos.Tenant,
		cache,
		bus,
		cfg.Providers,
		cfg.Security.OAuthStateTTL.Duration,
		logger,
	)

	clientRegistry := service.NewClientRegistry(repos.OAuthClient)
	authServer := service.NewAuthorizationServer(
		clientRegistry,
		repos.AuthState,
		repos.RefreshToken,
		repos.User,
		repos.Tenant,
		tokenService,
		logger,
	)

	userService := service.NewUserService(
		repos.User,
		repos.Tenant,
		tokenService,
		csrfService,
		cfg.Auth.AutoApproveUsers,
		logger,
	)
	tenantService := service.NewTenantService(repos.Tenant, repos.TenantCredentials, providers, logger)

	registry := service.NewToolRegistry()
	selection := service.NewToolSelection(registry, repos.ToolOverride, cfg.Security.DisabledTools)
	toolHandlers := service.NewToolHandlers(
		upstream,
		providers,
		cache,
		repos.UserToken,
		repos.User,
		selection,
		progress,
		logger,
	)
	service.RegisterCatalogue(registry, toolHandlers)

	audit := service.NewAuditService(repos.Audit, logger)
	dispatcher := service.NewDispatcher(registry, selection, progress, audit, logger)
	converter := service.NewProtocolConverter()

	h := handlers{
		users:    handler.NewUsersHandler(userService, blacklistService, tokenService),
		oauth2:   handler.NewOAuth2Handler(authServer, clientRegistry, keys, cfg.Auth.BaseURL, cfg.Auth.FrontendURL),
		callback: handler.NewCallbackHandler(upstream, cfg.Auth.FrontendURL),
		tools:    handler.NewToolsHandler(dispatcher, registry, converter, progress),
		tenants:  handler.NewTenantHandler(tenantService, selection),
		admin:    handler.NewAdminHandler(userService, repos.AdminToken, repos.Settings, logger),
		ws:       handler.NewWSHandler(bus, logger),
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("pierre-gateway"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	router.Use(handler.AuthContext(tokenService, csrfService, blacklistService))

	setupRoutes(router, cfg, h, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	ipLimit := func(bucket string) gin.HandlerFunc {
		return handler.RateLimitMiddleware(rateLimiter, bucket,
			cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.IPBasedKey)
	}
	userLimit := func(bucket string) gin.HandlerFunc {
		return handler.RateLimitMiddleware(rateLimiter, bucket,
			cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.UserBasedKey)
	}

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	// RFC 8414 discovery and key material
	router.GET("/.well-known/oauth-authorization-server", h.oauth2.Metadata)
	router.GET("/.well-known/jwks.json", h.oauth2.JWKS)

	oauth2 := router.Group("/oauth2")
	{
		oauth2.GET("/jwks", h.oauth2.JWKS)
		oauth2.POST("/register", ipLimit("oauth2_register"), h.oauth2.RegisterClient)
		oauth2.GET("/authorize", ipLimit("oauth2_authorize"), h.oauth2.Authorize)
		oauth2.POST("/token", ipLimit("oauth2_token"), h.oauth2.Token)
		oauth2.POST("/validate-and-refresh", h.oauth2.ValidateAndRefresh)
	}

	// ROPC-style alias kept for legacy clients
	router.POST("/oauth/token", ipLimit("oauth2_token"), h.oauth2.Token)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", ipLimit("auth_register"), h.users.Register)
			auth.POST("/login", ipLimit("auth_login"), h.users.Login)
			auth.POST("/logout", handler.RequireAuth(), h.users.Logout)
			auth.GET("/me", handler.RequireAuth(), h.users.GetMe)
		}

		oauth := api.Group("/oauth")
		{
			oauth.GET("/auth/:provider/:user_id", handler.RequireAuth(), h.callback.AuthorizationURL)
			oauth.GET("/callback/:provider", h.callback.Callback)
		}

		tools := api.Group("/tools", handler.RequireAuth(), userLimit("tools"))
		{
			tools.GET("", h.tools.ListREST)
			tools.POST("/:tool", h.tools.CallREST)
		}

		tenants := api.Group("/tenants", handler.RequireAuth())
		{
			tenants.POST("", h.tenants.Create)
			tenants.GET("", h.tenants.List)
			tenants.PUT("/:tenant_id/credentials/:provider", h.tenants.SetCredentials)
			tenants.GET("/:tenant_id/tools", h.tenants.ListTools)
			tenants.PUT("/:tenant_id/tools/:tool", h.tenants.SetToolOverride)
		}
	}

	router.POST("/rpc", handler.RequireAuth(), userLimit("rpc"), h.tools.RPC)
	router.POST("/a2a/:tool", handler.RequireAuth(), userLimit("a2a"), h.tools.CallA2A)
	router.GET("/ws", handler.RequireAuth(), h.ws.Serve)

	admin := router.Group("/admin", h.admin.AdminTokenAuth())
	{
		admin.POST("/users/:user_id/approve", h.admin.ApproveUser)
		admin.POST("/users/:user_id/suspend", h.admin.SuspendUser)
		admin.DELETE("/users/:user_id", h.admin.DeleteUser)
		admin.GET("/settings/:key", h.admin.GetSetting)
		admin.PUT("/settings/:key", h.admin.SetSetting)
		admin.POST("/tokens",
			handler.RequireRole(domain.RoleSuperAdmin),
			h.admin.CreateAdminToken,
		)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
