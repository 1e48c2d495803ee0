package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/FACorreiaa/go-admin-console/internal/api"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type UserHandler struct {
	client apiclient.UsersAPI
	views  *views.Renderer
	logger *slog.Logger
}

func NewUserHandler(client apiclient.UsersAPI, renderer *views.Renderer, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		client: client,
		views:  renderer,
		logger: logger,
	}
}

// List shows one page of users. Filters that do not validate are dropped and
// the first page is shown instead.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}

	page := views.NewPage(w, r, "Users")
	page.Active = "users"

	q, err := contracts.UserQuerySchema.Parse(r.URL.Query())
	if err != nil {
		h.logger.DebugContext(r.Context(), "Invalid user query", slog.String("method", "List"), slog.Any("error", err))
		page.Error = "Some filters were not valid and have been reset."
		q = contracts.UserQuerySchema.MustParse(url.Values{})
	}

	res, err := h.client.ListUsers(r.Context(), token, q)
	if err != nil {
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		page.Error = msg
		page.Data = views.UsersData{Query: q, Pagination: contracts.NewPagination(q.Page, q.PerPage, 0)}
		h.views.Render(w, r, statusFor(err), views.PageUsers, page)
		return
	}

	page.Data = views.UsersData{Users: res.Users, Pagination: res.Pagination, Query: q}
	h.views.Render(w, r, http.StatusOK, views.PageUsers, page)
}

func (h *UserHandler) Detail(w http.ResponseWriter, r *http.Request) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	id, ok := api.URLParamID(r, "id")
	if !ok {
		h.views.NotFound(w, r)
		return
	}
	h.renderDetail(w, r, store, token, id, http.StatusOK, views.NewPage(w, r, "User"))
}

// renderDetail loads user id and renders the detail page on top of page.
func (h *UserHandler) renderDetail(w http.ResponseWriter, r *http.Request, store *auth.Store, token string, id int64, status int, page views.Page) {
	u, err := h.client.GetUser(r.Context(), token, id)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			h.views.NotFound(w, r)
			return
		}
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		page.Error = msg
		h.views.Render(w, r, statusFor(err), views.PageError, page)
		return
	}

	page.Title = u.Name
	page.Active = "users"
	page.Data = views.UserDetailData{
		User:   u,
		IsSelf: page.State.User != nil && page.State.User.ID == u.ID,
	}
	h.views.Render(w, r, status, views.PageUserDetail, page)
}

// NewUserPage shows the create form with the API's defaults preselected.
func (h *UserHandler) NewUserPage(w http.ResponseWriter, r *http.Request) {
	page := views.NewPage(w, r, "New user")
	page.Active = "user_new"
	page.Form = url.Values{
		"role":   {contracts.RoleDeveloper.String()},
		"status": {contracts.StatusActive.String()},
	}
	h.views.Render(w, r, http.StatusOK, views.PageUserNew, page)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Create"))

	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	page := views.NewPage(w, r, "New user")
	page.Active = "user_new"
	page.Form = url.Values{
		"name":   {r.PostForm.Get("name")},
		"email":  {r.PostForm.Get("email")},
		"role":   {r.PostForm.Get("role")},
		"status": {r.PostForm.Get("status")},
	}

	req, err := contracts.CreateUserSchema.Parse(r.PostForm)
	if err != nil {
		ve, _ := contracts.AsValidationError(err)
		h.views.Render(w, r, http.StatusUnprocessableEntity, views.PageUserNew, page.WithValidation(ve))
		return
	}

	created, err := h.client.CreateUser(r.Context(), token, req)
	if err != nil {
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		page.Error = msg
		h.views.Render(w, r, statusFor(err), views.PageUserNew, page)
		return
	}

	l.InfoContext(r.Context(), "User created", slog.Int64("user_id", created.ID))
	views.SetFlash(w, fmt.Sprintf("User %s created.", created.Name))
	http.Redirect(w, r, userPath(created.ID), http.StatusSeeOther)
}

// Update applies the edit form. Editing yourself also refreshes the signed-in
// user shown in the header.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	id, ok := api.URLParamID(r, "id")
	if !ok {
		h.views.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	req, err := contracts.UpdateUserSchema.Parse(r.PostForm)
	if err != nil {
		ve, _ := contracts.AsValidationError(err)
		page := views.NewPage(w, r, "User").WithValidation(ve)
		h.renderDetail(w, r, store, token, id, http.StatusUnprocessableEntity, page)
		return
	}
	if req.Empty() {
		views.SetFlash(w, "Nothing to update.")
		http.Redirect(w, r, userPath(id), http.StatusSeeOther)
		return
	}

	updated, err := h.client.UpdateUser(r.Context(), token, id, req)
	if err != nil {
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		page := views.NewPage(w, r, "User")
		page.Error = msg
		h.renderDetail(w, r, store, token, id, statusFor(err), page)
		return
	}

	if st := store.State(); st.User != nil && st.User.ID == updated.ID {
		store.SetUser(contracts.UserPatch{
			Email:    &updated.Email,
			Name:     &updated.Name,
			Role:     &updated.Role,
			Status:   &updated.Status,
			IsActive: &updated.IsActive,
		})
	}
	views.SetFlash(w, "User updated.")
	http.Redirect(w, r, userPath(id), http.StatusSeeOther)
}

func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Activate", h.client.ActivateUser, "User activated.")
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "Deactivate", h.client.DeactivateUser, "User deactivated.")
}

// Delete removes a user and returns to the list.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	id, ok := api.URLParamID(r, "id")
	if !ok {
		h.views.NotFound(w, r)
		return
	}

	if err := h.client.DeleteUser(r.Context(), token, id); err != nil {
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		views.SetFlash(w, msg)
		http.Redirect(w, r, userPath(id), http.StatusSeeOther)
		return
	}

	h.logger.InfoContext(r.Context(), "User deleted", slog.String("method", "Delete"), slog.Int64("user_id", id))
	views.SetFlash(w, "User deleted.")
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	id, ok := api.URLParamID(r, "id")
	if !ok {
		h.views.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	req, err := contracts.ResetPasswordSchema.Parse(contracts.ResetPasswordRequest{
		UserID:      id,
		NewPassword: r.PostForm.Get("new_password"),
	})
	if err != nil {
		ve, _ := contracts.AsValidationError(err)
		page := views.NewPage(w, r, "User").WithValidation(ve)
		h.renderDetail(w, r, store, token, id, http.StatusUnprocessableEntity, page)
		return
	}

	if err := h.client.ResetPassword(r.Context(), token, req); err != nil {
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		views.SetFlash(w, msg)
		http.Redirect(w, r, userPath(id), http.StatusSeeOther)
		return
	}

	views.SetFlash(w, "Password reset.")
	http.Redirect(w, r, userPath(id), http.StatusSeeOther)
}

// Search answers the user picker with at most limit matches as JSON.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Search"))

	store := auth.StoreFromContext(r.Context())
	if store == nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "not signed in")
		return
	}
	token, ok := store.Authorize(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "not signed in")
		return
	}

	term := r.URL.Query().Get("q")
	if term == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "search term is required")
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
			return
		}
		limit = n
	}

	users, err := h.client.SearchUsers(r.Context(), token, term, limit)
	if err != nil {
		l.WarnContext(r.Context(), "User search failed", slog.Any("error", err))
		st := store.Fail(err)
		if st.IsAuthenticated {
			store.ClearError()
		}
		api.ErrorResponse(w, r, statusFor(err), apiclient.DisplayMessage(err))
		return
	}
	if users == nil {
		users = []contracts.User{}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"users": users})
}

type userAction func(ctx context.Context, token string, id int64) error

// action runs a one-shot admin action on the user in the URL and returns to
// the detail page with the outcome as a flash message.
func (h *UserHandler) action(w http.ResponseWriter, r *http.Request, name string, do userAction, success string) {
	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	id, ok := api.URLParamID(r, "id")
	if !ok {
		h.views.NotFound(w, r)
		return
	}

	if err := do(r.Context(), token, id); err != nil {
		h.logger.WarnContext(r.Context(), "User action failed",
			slog.String("method", name), slog.Int64("user_id", id), slog.Any("error", err))
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		views.SetFlash(w, msg)
		http.Redirect(w, r, userPath(id), http.StatusSeeOther)
		return
	}

	views.SetFlash(w, success)
	http.Redirect(w, r, userPath(id), http.StatusSeeOther)
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

// statusFor is the status of a page rendered after a failed API call.
func statusFor(err error) int {
	kind, ok := apiclient.ErrorKind(err)
	if !ok {
		if errors.Is(err, contracts.ErrValidation) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	}
	switch kind {
	case apiclient.KindValidation, apiclient.KindConflict:
		return http.StatusUnprocessableEntity
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindAuthentication:
		return http.StatusUnauthorized
	case apiclient.KindAuthorization:
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}
