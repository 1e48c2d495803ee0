package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	appMiddleware "github.com/FACorreiaa/go-admin-console/app/middleware"
	"github.com/FACorreiaa/go-admin-console/app/observability/metrics"
	"github.com/FACorreiaa/go-admin-console/config"
	authHandler "github.com/FACorreiaa/go-admin-console/internal/api/auth"
	"github.com/FACorreiaa/go-admin-console/internal/api/dashboard"
	"github.com/FACorreiaa/go-admin-console/internal/api/profile"
	"github.com/FACorreiaa/go-admin-console/internal/api/user"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/router"
	"github.com/FACorreiaa/go-admin-console/internal/session"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Client           *apiclient.Client
	Sessions         *session.Registry
	Redis            *redis.Client
	Views            *views.Renderer
	AuthHandler      *authHandler.AuthHandler
	UserHandler      *user.UserHandler
	DashboardHandler *dashboard.DashboardHandler
	ProfileHandler   *profile.ProfileHandler
}

// NewContainer initializes and returns a new dependency container. Redis is
// only dialled when redis.addr is configured.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	appMetrics := metrics.Get()

	client, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithHTTPClient(&http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(appMetrics),
		apiclient.WithRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst),
	)
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		Client: client,
	}

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithMetrics(appMetrics),
	}
	if cfg.Redis.Addr != "" {
		rdb, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("Session persistence enabled", slog.String("redis_addr", cfg.Redis.Addr))
		c.Redis = rdb
		sessionOpts = append(sessionOpts, session.WithPersister(session.NewRedisPersister(rdb, cfg.Redis.Prefix)))
	}

	newStore := func(opts ...auth.Option) *auth.Store {
		base := []auth.Option{auth.WithLogger(logger), auth.WithMetrics(appMetrics)}
		return auth.NewStore(client, append(base, opts...)...)
	}
	c.Sessions = session.NewRegistry(newStore, cfg.Session, sessionOpts...)

	c.Views, err = views.NewRenderer(logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.AuthHandler = authHandler.NewAuthHandler(c.Views, logger)
	c.UserHandler = user.NewUserHandler(client, c.Views, logger)
	c.DashboardHandler = dashboard.NewDashboardHandler(client, c.Views, logger)
	c.ProfileHandler = profile.NewProfileHandler(client, c.Views, logger)

	return c, nil
}

// Router builds the console's HTTP handler.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		AuthHandler:      c.AuthHandler,
		UserHandler:      c.UserHandler,
		DashboardHandler: c.DashboardHandler,
		ProfileHandler:   c.ProfileHandler,
		Sessions:         c.Sessions.Middleware,
		CSRF: appMiddleware.NewCSRFMiddleware(appMiddleware.CSRFConfig{
			CookieSecure: c.Config.Session.CookieSecure,
			Logger:       c.Logger,
		}),
		NotFound:       c.Views.NotFound,
		Logger:         c.Logger,
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		LoginRequests:  c.Config.LoginRateLimit.Requests,
		LoginWindow:    c.Config.LoginRateLimit.Window,
		RequestTimeout: c.Config.Server.WriteTimeout,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Sessions != nil {
		c.Sessions.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
}
