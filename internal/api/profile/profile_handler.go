package profile

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-admin-console/internal/api"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

const (
	profilePath = "/profile"

	adminOnlyProfile = "Only administrators can change name and email."
)

type ProfileHandler struct {
	client apiclient.UsersAPI
	views  *views.Renderer
	logger *slog.Logger
}

func NewProfileHandler(client apiclient.UsersAPI, renderer *views.Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		client: client,
		views:  renderer,
		logger: logger,
	}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := api.Authorize(w, r); !ok {
		return
	}
	page := views.NewPage(w, r, "Profile")
	page.Active = "profile"
	h.views.Render(w, r, http.StatusOK, views.PageProfile, page)
}

// UpdateProfile saves name and email on the API and echoes the result into
// the signed-in user. The API only lets admins update accounts, so other
// roles are refused before any call.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "UpdateProfile"))

	store, token, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	user, ok := api.CurrentUser(w, r, store)
	if !ok {
		return
	}
	if user.Role != contracts.RoleAdmin {
		l.WarnContext(r.Context(), "Profile update refused", slog.Int64("user_id", user.ID))
		h.render(w, r, http.StatusForbidden, func(p *views.Page) { p.Error = adminOnlyProfile })
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form, err := contracts.ProfileFormSchema.Parse(r.PostForm)
	if err != nil {
		ve, _ := contracts.AsValidationError(err)
		h.render(w, r, http.StatusUnprocessableEntity, func(p *views.Page) { *p = p.WithValidation(ve) })
		return
	}

	updated, err := h.client.UpdateUser(r.Context(), token, user.ID, contracts.UpdateUserRequest{
		Name:  &form.Name,
		Email: &form.Email,
	})
	if err != nil {
		l.WarnContext(r.Context(), "Profile update failed", slog.Any("error", err))
		msg, done := api.HandleFailure(w, r, store, err)
		if done {
			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, func(p *views.Page) { p.Error = msg })
		return
	}

	store.SetUser(contracts.UserPatch{Name: &updated.Name, Email: &updated.Email})
	views.SetFlash(w, "Profile saved.")
	http.Redirect(w, r, profilePath, http.StatusSeeOther)
}

// ChangePassword goes through the auth store so a revoked token signs the
// viewer out.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	store, _, ok := api.Authorize(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	st := store.ChangePassword(r.Context(), r.PostForm)
	if !st.IsAuthenticated {
		http.Redirect(w, r, auth.LoginURL(profilePath), http.StatusSeeOther)
		return
	}
	if st.Error != "" {
		store.ClearError()
		h.render(w, r, http.StatusUnprocessableEntity, func(p *views.Page) {
			if st.Validation != nil {
				*p = p.WithValidation(st.Validation)
				return
			}
			p.Error = st.Error
		})
		return
	}

	views.SetFlash(w, "Password changed.")
	http.Redirect(w, r, profilePath, http.StatusSeeOther)
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, status int, decorate func(*views.Page)) {
	page := views.NewPage(w, r, "Profile")
	page.Active = "profile"
	decorate(&page)
	h.views.Render(w, r, status, views.PageProfile, page)
}
