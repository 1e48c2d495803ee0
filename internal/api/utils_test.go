package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient/apiclienttest"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

func TestHandleFailure(t *testing.T) {
	forbidden := &apiclient.APIError{Kind: apiclient.KindAuthorization, Status: http.StatusForbidden}

	signedIn := func() *auth.Store {
		store := auth.NewStore(new(apiclienttest.MockAPI))
		store.Restore(apiclienttest.SignedIn(3, contracts.RoleUser))
		return store
	}

	// Test case: a refused page sends the viewer to the dashboard
	t.Run("ForbiddenRedirectsToDashboard", func(t *testing.T) {
		w := httptest.NewRecorder()
		msg, done := HandleFailure(w, httptest.NewRequest(http.MethodGet, "/users", nil), signedIn(), forbidden)

		assert.True(t, done)
		assert.Empty(t, msg)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, auth.DashboardPath, w.Header().Get("Location"))
	})

	// Test case: the dashboard itself never redirects to itself
	t.Run("ForbiddenOnDashboard", func(t *testing.T) {
		w := httptest.NewRecorder()
		store := signedIn()
		msg, done := HandleFailure(w, httptest.NewRequest(http.MethodGet, auth.DashboardPath, nil), store, forbidden)

		assert.False(t, done)
		assert.Equal(t, "You do not have permission to perform this action.", msg)
		assert.Empty(t, w.Header().Get("Location"))
		assert.Empty(t, store.State().Error)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		store := signedIn()
		_, done := HandleFailure(w, httptest.NewRequest(http.MethodGet, "/users?page=2", nil), store,
			&apiclient.APIError{Kind: apiclient.KindAuthentication, Status: http.StatusUnauthorized})

		assert.True(t, done)
		assert.Equal(t, "/login?from=%2Fusers%3Fpage%3D2", w.Header().Get("Location"))
		assert.False(t, store.State().IsAuthenticated)
	})
}

func TestCurrentUser(t *testing.T) {
	t.Run("SignedIn", func(t *testing.T) {
		store := auth.NewStore(new(apiclienttest.MockAPI))
		store.Restore(apiclienttest.SignedIn(3, contracts.RoleAdmin))
		w := httptest.NewRecorder()

		user, ok := CurrentUser(w, httptest.NewRequest(http.MethodGet, "/profile", nil), store)

		assert.True(t, ok)
		assert.Equal(t, int64(3), user.ID)
	})

	// Test case: a session ended after Authorize redirects instead of panicking
	t.Run("SignedOutMeanwhile", func(t *testing.T) {
		store := auth.NewStore(new(apiclienttest.MockAPI))
		w := httptest.NewRecorder()

		user, ok := CurrentUser(w, httptest.NewRequest(http.MethodGet, "/profile", nil), store)

		assert.False(t, ok)
		assert.Nil(t, user)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?from=%2Fprofile", w.Header().Get("Location"))
	})
}
