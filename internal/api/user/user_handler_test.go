package user

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient/apiclienttest"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

type fixture struct {
	api    *apiclienttest.MockAPI
	store  *auth.Store
	router chi.Router
}

func newFixture(t *testing.T, role contracts.Role) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := views.NewRenderer(logger)
	require.NoError(t, err)

	f := &fixture{api: new(apiclienttest.MockAPI)}
	f.store = auth.NewStore(f.api)
	f.store.Restore(apiclienttest.SignedIn(1, role))

	h := NewUserHandler(f.api, renderer, logger)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithStore(req.Context(), f.store)))
		})
	})
	r.Get("/users", h.List)
	r.Get("/users/new", h.NewUserPage)
	r.Post("/users/new", h.Create)
	r.Get("/users/{id}", h.Detail)
	r.Post("/users/{id}/edit", h.Update)
	r.Post("/users/{id}/activate", h.Activate)
	r.Post("/users/{id}/deactivate", h.Deactivate)
	r.Post("/users/{id}/reset-password", h.ResetPassword)
	r.Post("/users/{id}/delete", h.Delete)
	r.Get("/api/users/search", h.Search)
	f.router = r
	return f
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (f *fixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func flash(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == "console_flash" {
			v, _ := url.QueryUnescape(c.Value)
			return v
		}
	}
	return ""
}

func testUser(id int64) contracts.User {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return contracts.User{
		ID: id, Email: "ana@example.com", Name: "Ana", Role: contracts.RoleDeveloper,
		Status: contracts.StatusActive, IsActive: true, CreatedAt: ts, UpdatedAt: ts,
	}
}

func TestList(t *testing.T) {
	// Test case: query string is coerced and forwarded
	t.Run("ForwardsParsedQuery", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		total, pages := 30, 3
		f.api.On("ListUsers", mock.Anything, "access-token", mock.MatchedBy(func(q contracts.UserQuery) bool {
			return q.Page == 2 && q.PerPage == 10 && q.Role != nil && *q.Role == contracts.RoleAdmin && q.Search == nil
		})).Return(contracts.UserListResponse{
			Users:      []contracts.User{testUser(9)},
			Pagination: contracts.Pagination{Page: 2, PerPage: 10, Total: &total, Pages: &pages},
		}, nil).Once()

		w := f.get("/users?page=2&role=admin&search=")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Page 2 of 3")
		assert.Contains(t, w.Body.String(), "ana@example.com")
		f.api.AssertExpectations(t)
	})

	// Test case: invalid filters fall back to the defaults
	t.Run("InvalidFiltersReset", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("ListUsers", mock.Anything, "access-token", mock.MatchedBy(func(q contracts.UserQuery) bool {
			return q.Page == 1 && q.PerPage == 10 && q.Role == nil
		})).Return(contracts.UserListResponse{Pagination: contracts.NewPagination(1, 10, 0)}, nil).Once()

		w := f.get("/users?per_page=500&role=owner")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Some filters were not valid")
	})

	// Test case: a revoked token signs the viewer out
	t.Run("UnauthenticatedRedirectsToLogin", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(contracts.UserListResponse{},
			&apiclient.APIError{Kind: apiclient.KindAuthentication, Status: http.StatusUnauthorized}).Once()

		w := f.get("/users?page=3")

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?from=%2Fusers%3Fpage%3D3", w.Header().Get("Location"))
		assert.False(t, f.store.State().IsAuthenticated)
	})

	// Test case: the API is down
	t.Run("NetworkError", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(contracts.UserListResponse{},
			&apiclient.NetworkError{Op: "list users", Err: errors.New("connection refused")}).Once()

		w := f.get("/users")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "Could not reach the server")
		assert.True(t, f.store.State().IsAuthenticated)
		assert.Empty(t, f.store.State().Error)
	})
}

func TestDetail(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("GetUser", mock.Anything, "access-token", int64(9)).Return(testUser(9), nil).Once()

		w := f.get("/users/9")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/users/9/deactivate")
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("GetUser", mock.Anything, mock.Anything, int64(404)).Return(contracts.User{},
			&apiclient.APIError{Kind: apiclient.KindNotFound, Status: http.StatusNotFound}).Once()

		assert.Equal(t, http.StatusNotFound, f.get("/users/404").Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		assert.Equal(t, http.StatusNotFound, f.get("/users/abc").Code)
		f.api.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything, mock.Anything)
	})

	// Test case: a 403 from the API returns to the dashboard with a message
	t.Run("Forbidden", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("GetUser", mock.Anything, mock.Anything, int64(9)).Return(contracts.User{},
			&apiclient.APIError{Kind: apiclient.KindAuthorization, Status: http.StatusForbidden}).Once()

		w := f.get("/users/9")

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		assert.Equal(t, "You do not have permission to perform this action.", flash(w))
	})
}

func TestCreate(t *testing.T) {
	t.Run("ValidationErrors", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)

		w := f.post("/users/new", url.Values{"name": {"A"}, "email": {"ana@example.com"}, "password": {"short"}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "name must be at least 2 characters")
		assert.Contains(t, w.Body.String(), "password must be at least 8 characters")
		f.api.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("CreateUser", mock.Anything, "access-token", contracts.CreateUserRequest{
			Email: "ana@example.com", Password: "password1", Name: "Ana",
			Role: contracts.RoleDeveloper, Status: contracts.StatusActive,
		}).Return(testUser(12), nil).Once()

		w := f.post("/users/new", url.Values{"name": {"Ana"}, "email": {"ana@example.com"}, "password": {"password1"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/users/12", w.Header().Get("Location"))
		assert.Equal(t, "User Ana created.", flash(w))
		f.api.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return(contracts.User{},
			&apiclient.APIError{Kind: apiclient.KindConflict, Status: http.StatusConflict, Message: "User with this email already exists"}).Once()

		w := f.post("/users/new", url.Values{"name": {"Ana"}, "email": {"ana@example.com"}, "password": {"password1"}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "User with this email already exists")
	})
}

func TestUpdate(t *testing.T) {
	// Test case: editing yourself updates the signed-in user
	t.Run("SelfEditEchoesIntoStore", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		updated := testUser(1)
		updated.Name = "Renamed"
		updated.Role = contracts.RoleAdmin
		name := "Renamed"
		f.api.On("UpdateUser", mock.Anything, "access-token", int64(1), contracts.UpdateUserRequest{Name: &name}).
			Return(updated, nil).Once()

		w := f.post("/users/1/edit", url.Values{"name": {"Renamed"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "User updated.", flash(w))
		assert.Equal(t, "Renamed", f.store.State().User.Name)
	})

	t.Run("NothingToUpdate", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)

		w := f.post("/users/9/edit", url.Values{"name": {""}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Nothing to update.", flash(w))
		f.api.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidRole", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("GetUser", mock.Anything, mock.Anything, int64(9)).Return(testUser(9), nil).Once()

		w := f.post("/users/9/edit", url.Values{"role": {"owner"}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		f.api.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestActions(t *testing.T) {
	t.Run("Activate", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("ActivateUser", mock.Anything, "access-token", int64(9)).Return(nil).Once()

		w := f.post("/users/9/activate", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/users/9", w.Header().Get("Location"))
		assert.Equal(t, "User activated.", flash(w))
	})

	t.Run("DeactivateRejected", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("DeactivateUser", mock.Anything, mock.Anything, int64(1)).Return(
			&apiclient.APIError{Kind: apiclient.KindValidation, Status: http.StatusBadRequest, Message: "Cannot deactivate your own account"}).Once()

		w := f.post("/users/1/deactivate", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Cannot deactivate your own account", flash(w))
	})

	t.Run("ResetPasswordTooShort", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("GetUser", mock.Anything, mock.Anything, int64(9)).Return(testUser(9), nil).Once()

		w := f.post("/users/9/reset-password", url.Values{"new_password": {"short"}})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		f.api.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ResetPassword", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("ResetPassword", mock.Anything, "access-token",
			contracts.ResetPasswordRequest{UserID: 9, NewPassword: "password1"}).Return(nil).Once()

		w := f.post("/users/9/reset-password", url.Values{"new_password": {"password1"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Password reset.", flash(w))
	})

	t.Run("Delete", func(t *testing.T) {
		f := newFixture(t, contracts.RoleAdmin)
		f.api.On("DeleteUser", mock.Anything, "access-token", int64(9)).Return(nil).Once()

		w := f.post("/users/9/delete", url.Values{})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/users", w.Header().Get("Location"))
	})
}

func TestSearch(t *testing.T) {
	t.Run("Matches", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("SearchUsers", mock.Anything, "access-token", "ana", 5).Return([]contracts.User{testUser(9)}, nil).Once()

		w := f.get("/api/users/search?q=ana&limit=5")

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Users []contracts.User `json:"users"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Len(t, body.Users, 1)
		assert.Equal(t, int64(9), body.Users[0].ID)
	})

	t.Run("MissingTerm", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		assert.Equal(t, http.StatusBadRequest, f.get("/api/users/search").Code)
	})

	t.Run("LimitOutOfRange", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		assert.Equal(t, http.StatusBadRequest, f.get("/api/users/search?q=ana&limit=500").Code)
	})

	t.Run("SignedOut", func(t *testing.T) {
		f := newFixture(t, contracts.RoleDeveloper)
		f.api.On("Logout", mock.Anything, "access-token").Return(nil).Once()
		f.store.Logout(t.Context())
		assert.Equal(t, http.StatusUnauthorized, f.get("/api/users/search?q=ana").Code)
	})
}
