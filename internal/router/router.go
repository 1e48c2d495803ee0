package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	appLogger "github.com/FACorreiaa/go-admin-console/app/logger"
	appMiddleware "github.com/FACorreiaa/go-admin-console/app/middleware"
	authHandler "github.com/FACorreiaa/go-admin-console/internal/api/auth"
	"github.com/FACorreiaa/go-admin-console/internal/api/dashboard"
	"github.com/FACorreiaa/go-admin-console/internal/api/profile"
	"github.com/FACorreiaa/go-admin-console/internal/api/user"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler      *authHandler.AuthHandler
	UserHandler      *user.UserHandler
	DashboardHandler *dashboard.DashboardHandler
	ProfileHandler   *profile.ProfileHandler

	// Sessions attaches the viewer's auth store to the request.
	Sessions func(http.Handler) http.Handler
	CSRF     func(http.Handler) http.Handler
	NotFound http.HandlerFunc
	Logger   *slog.Logger

	AllowedOrigins []string
	LoginRequests  int
	LoginWindow    time.Duration
	RequestTimeout time.Duration
}

// SetupRouter initializes and configures the console router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(appMiddleware.SecurityHeaders)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Liveness, no session
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions)
		r.Use(cfg.CSRF)
		r.Use(appMiddleware.NoStore)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, auth.DashboardPath, http.StatusSeeOther)
		})

		// --- Public pages ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RedirectIfAuthenticated)
			throttle := limitByIP(cfg.LoginRequests, cfg.LoginWindow)

			r.Get(auth.LoginPath, cfg.AuthHandler.LoginPage)
			r.With(throttle).Post(auth.LoginPath, cfg.AuthHandler.Login)
			r.Get(auth.RegisterPath, cfg.AuthHandler.RegisterPage)
			r.With(throttle).Post(auth.RegisterPath, cfg.AuthHandler.Register)
		})

		r.Post("/logout", cfg.AuthHandler.Logout)

		// --- JSON for embedded widgets ---
		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				AllowedMethods:   []string{"GET", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Get("/session", cfg.AuthHandler.Session)
			r.Get("/users/search", cfg.UserHandler.Search)
		})

		// --- Signed-in pages ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get(auth.DashboardPath, cfg.DashboardHandler.Dashboard)
			r.Get("/users", cfg.UserHandler.List)
			r.Get("/users/{id}", cfg.UserHandler.Detail)
			r.Get("/profile", cfg.ProfileHandler.Profile)
			r.Post("/profile", cfg.ProfileHandler.UpdateProfile)
			r.Post("/profile/password", cfg.ProfileHandler.ChangePassword)
		})

		// --- Admin pages ---
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/users/new", cfg.UserHandler.NewUserPage)
			r.Post("/users/new", cfg.UserHandler.Create)
			r.Post("/users/{id}/edit", cfg.UserHandler.Update)
			r.Post("/users/{id}/activate", cfg.UserHandler.Activate)
			r.Post("/users/{id}/deactivate", cfg.UserHandler.Deactivate)
			r.Post("/users/{id}/reset-password", cfg.UserHandler.ResetPassword)
			r.Post("/users/{id}/delete", cfg.UserHandler.Delete)
		})
	})

	if cfg.NotFound != nil {
		r.NotFound(cfg.NotFound)
	}
	return r
}

// limitByIP throttles sign-in attempts. A non-positive limit disables it.
func limitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(requests, window)
}
