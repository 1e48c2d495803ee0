// Package api holds the helpers shared by the console's page handlers.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

// ErrorResponse writes a standard JSON error response including request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	reqID := middleware.GetReqID(r.Context())
	resp := map[string]any{
		"success":    false,
		"error":      message,
		"request_id": reqID,
	}
	WriteJSONResponse(w, r, status, resp)
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// Authorize returns the viewer's Store and a valid access token. When the
// viewer is signed out, or the token expired and could not be refreshed, it
// redirects to the login page and reports false.
func Authorize(w http.ResponseWriter, r *http.Request) (*auth.Store, string, bool) {
	store := auth.StoreFromContext(r.Context())
	if store == nil {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return nil, "", false
	}
	token, ok := store.Authorize(r.Context())
	if !ok {
		http.Redirect(w, r, auth.LoginURL(returnPath(r)), http.StatusSeeOther)
		return nil, "", false
	}
	return store, token, true
}

// CurrentUser returns the signed-in user of store. A viewer signed out since
// Authorize is redirected to the login page and false is reported.
func CurrentUser(w http.ResponseWriter, r *http.Request, store *auth.Store) (*contracts.AuthUser, bool) {
	if u := store.State().User; u != nil {
		return u, true
	}
	http.Redirect(w, r, auth.LoginURL(returnPath(r)), http.StatusSeeOther)
	return nil, false
}

// HandleFailure turns a failed API call into a user-facing outcome. An
// expired session redirects to the login page and a permission failure back to
// the dashboard, unless the dashboard itself failed; when it redirects it
// reports true and the handler is done.
// Otherwise it returns the message to show on the page.
func HandleFailure(w http.ResponseWriter, r *http.Request, store *auth.Store, err error) (string, bool) {
	st := store.Fail(err)
	if !st.IsAuthenticated {
		http.Redirect(w, r, auth.LoginURL(returnPath(r)), http.StatusSeeOther)
		return "", true
	}
	msg := st.Error
	store.ClearError()
	if errors.Is(err, apiclient.ErrAuthorization) && r.URL.Path != auth.DashboardPath {
		views.SetFlash(w, msg)
		http.Redirect(w, r, auth.DashboardPath, http.StatusSeeOther)
		return "", true
	}
	return msg, false
}

// URLParamID reads a positive numeric route parameter.
func URLParamID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// returnPath is where to come back to after signing in again. Form posts
// return to the page the form was on.
func returnPath(r *http.Request) string {
	if r.Method == http.MethodGet {
		return r.URL.RequestURI()
	}
	if ref := r.Referer(); ref != "" {
		return auth.SafeReturnPath(localPath(ref))
	}
	return auth.DashboardPath
}

func localPath(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}
