package dashboard

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient/apiclienttest"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

func serve(t *testing.T, api *apiclienttest.MockAPI, store *auth.Store) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := views.NewRenderer(logger)
	require.NoError(t, err)
	h := NewDashboardHandler(api, renderer, logger)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(auth.ContextWithStore(req.Context(), store))
	w := httptest.NewRecorder()
	h.Dashboard(w, req)
	return w
}

func recentQuery(q contracts.UserQuery) bool {
	return q.Page == 1 && q.PerPage == recentUsers && q.SortBy == "created_at" && q.SortOrder == "desc"
}

func TestDashboard(t *testing.T) {
	recent := contracts.UserListResponse{
		Users:      []contracts.User{{ID: 9, Email: "new@example.com", Name: "Newest", Role: contracts.RoleUser, Status: contracts.StatusPending}},
		Pagination: contracts.NewPagination(1, recentUsers, 1),
	}

	// Test case: admins get statistics and recent users
	t.Run("Admin", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(1, contracts.RoleAdmin))
		api.On("UserStats", mock.Anything, "access-token").Return(contracts.UserStats{TotalUsers: 42, ActiveUsers: 40}, nil).Once()
		api.On("ListUsers", mock.Anything, "access-token", mock.MatchedBy(recentQuery)).Return(recent, nil).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<strong>42</strong>")
		assert.Contains(t, w.Body.String(), "new@example.com")
		api.AssertExpectations(t)
	})

	// Test case: developers never ask for statistics
	t.Run("Developer", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(2, contracts.RoleDeveloper))
		api.On("ListUsers", mock.Anything, "access-token", mock.MatchedBy(recentQuery)).Return(recent, nil).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Total users")
		api.AssertNotCalled(t, "UserStats", mock.Anything, mock.Anything)
	})

	// Test case: a stats failure still shows recent users
	t.Run("StatsFailure", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(1, contracts.RoleAdmin))
		api.On("UserStats", mock.Anything, mock.Anything).Return(contracts.UserStats{},
			&apiclient.APIError{Kind: apiclient.KindServer, Status: http.StatusInternalServerError}).Once()
		api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(recent, nil).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The server encountered an error")
		assert.Contains(t, w.Body.String(), "new@example.com")
	})

	t.Run("SignedOut", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		w := serve(t, api, auth.NewStore(api))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?from=%2Fdashboard", w.Header().Get("Location"))
	})

	t.Run("RecentUsersUnavailable", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(2, contracts.RoleDeveloper))
		api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(contracts.UserListResponse{},
			&apiclient.NetworkError{Op: "list users", Err: errors.New("timeout")}).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Could not reach the server")
		assert.NotContains(t, w.Body.String(), "No users yet.")
	})

	// Test case: a role the API refuses still gets the page, not a redirect
	t.Run("RecentUsersForbidden", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(3, contracts.RoleUser))
		api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(contracts.UserListResponse{},
			&apiclient.APIError{Kind: apiclient.KindAuthorization, Status: http.StatusForbidden}).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
		assert.Contains(t, w.Body.String(), "You do not have permission")
		assert.True(t, store.State().IsAuthenticated)
		api.AssertExpectations(t)
	})

	// Test case: an expired token on the recent users call signs out
	t.Run("RecentUsersUnauthenticated", func(t *testing.T) {
		api := new(apiclienttest.MockAPI)
		store := auth.NewStore(api)
		store.Restore(apiclienttest.SignedIn(2, contracts.RoleDeveloper))
		api.On("ListUsers", mock.Anything, mock.Anything, mock.Anything).Return(contracts.UserListResponse{},
			&apiclient.APIError{Kind: apiclient.KindAuthentication, Status: http.StatusUnauthorized}).Once()

		w := serve(t, api, store)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?from=%2Fdashboard", w.Header().Get("Location"))
		assert.False(t, store.State().IsAuthenticated)
	})
}
