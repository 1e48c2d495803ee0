package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/FACorreiaa/go-admin-console/app/middleware"
	authHandler "github.com/FACorreiaa/go-admin-console/internal/api/auth"
	"github.com/FACorreiaa/go-admin-console/internal/api/dashboard"
	"github.com/FACorreiaa/go-admin-console/internal/api/profile"
	"github.com/FACorreiaa/go-admin-console/internal/api/user"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient/apiclienttest"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

// newTestRouter serves every request with the same store.
func newTestRouter(t *testing.T, store *auth.Store, api *apiclienttest.MockAPI) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := views.NewRenderer(logger)
	require.NoError(t, err)

	return SetupRouter(&Config{
		AuthHandler:      authHandler.NewAuthHandler(renderer, logger),
		UserHandler:      user.NewUserHandler(api, renderer, logger),
		DashboardHandler: dashboard.NewDashboardHandler(api, renderer, logger),
		ProfileHandler:   profile.NewProfileHandler(api, renderer, logger),
		Sessions: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithStore(r.Context(), store)))
			})
		},
		CSRF:           appMiddleware.NewCSRFMiddleware(appMiddleware.CSRFConfig{Logger: logger}),
		NotFound:       renderer.NotFound,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
		LoginRequests:  2,
		LoginWindow:    time.Minute,
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGuardedRoutes(t *testing.T) {
	tests := []struct {
		name     string
		role     *contracts.Role
		path     string
		location string
	}{
		{name: "AnonymousDashboard", path: "/dashboard", location: "/login?from=%2Fdashboard"},
		{name: "AnonymousUsersKeepsQuery", path: "/users?page=2", location: "/login?from=%2Fusers%3Fpage%3D2"},
		{name: "DeveloperNewUser", role: ptr(contracts.RoleDeveloper), path: "/users/new", location: "/dashboard"},
		{name: "UserNewUser", role: ptr(contracts.RoleUser), path: "/users/new", location: "/dashboard"},
		{name: "SignedInLogin", role: ptr(contracts.RoleDeveloper), path: "/login", location: "/dashboard"},
		{name: "SignedInLoginWithFrom", role: ptr(contracts.RoleDeveloper), path: "/login?from=%2Fprofile", location: "/profile"},
		{name: "Root", path: "/", location: "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(apiclienttest.MockAPI)
			store := auth.NewStore(api)
			if tt.role != nil {
				store.Restore(apiclienttest.SignedIn(1, *tt.role))
			}

			w := get(newTestRouter(t, store, api), tt.path)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestAdminReachesNewUserPage(t *testing.T) {
	api := new(apiclienttest.MockAPI)
	store := auth.NewStore(api)
	store.Restore(apiclienttest.SignedIn(1, contracts.RoleAdmin))

	w := get(newTestRouter(t, store, api), "/users/new")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestPostWithoutCSRFTokenRejected(t *testing.T) {
	api := new(apiclienttest.MockAPI)
	store := auth.NewStore(api)
	h := newTestRouter(t, store, api)

	form := url.Values{"email": {"a@b.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLoginThrottled(t *testing.T) {
	api := new(apiclienttest.MockAPI)
	store := auth.NewStore(api)
	h := newTestRouter(t, store, api)

	var last int
	for i := 0; i < 3; i++ {
		form := url.Values{"email": {"bad"}, "password": {"x"}, "csrf_token": {"tok"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestHealthzAndNotFound(t *testing.T) {
	api := new(apiclienttest.MockAPI)
	h := newTestRouter(t, auth.NewStore(api), api)

	w := get(h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(h, "/nope").Code)
}

func TestSessionCORS(t *testing.T) {
	api := new(apiclienttest.MockAPI)
	h := newTestRouter(t, auth.NewStore(api), api)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"is_authenticated":false,"user":null,"is_loading":false}`, w.Body.String())
}

func ptr[T any](v T) *T { return &v }
