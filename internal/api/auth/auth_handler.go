package auth

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FACorreiaa/go-admin-console/internal/api"
	authstate "github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/views"
)

type AuthHandler struct {
	views  *views.Renderer
	logger *slog.Logger
}

func NewAuthHandler(renderer *views.Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		views:  renderer,
		logger: logger,
	}
}

// LoginPage shows the sign-in form. A pending store error, such as an
// expired session, is shown once.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := views.NewPage(w, r, "Sign in")
	page.Error = page.State.Error
	if store := authstate.StoreFromContext(r.Context()); store != nil {
		store.ClearError()
	}
	page.Form = url.Values{"from": {r.URL.Query().Get("from")}}
	h.views.Render(w, r, http.StatusOK, views.PageLogin, page)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Login"))

	store := authstate.StoreFromContext(r.Context())
	if err := r.ParseForm(); err != nil || store == nil {
		l.WarnContext(r.Context(), "Rejected login request", slog.Any("error", err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	st := store.Login(r.Context(), r.PostForm)
	if st.IsAuthenticated && st.Error == "" {
		http.Redirect(w, r, authstate.SafeReturnPath(r.PostForm.Get("from")), http.StatusSeeOther)
		return
	}

	page := views.NewPage(w, r, "Sign in")
	page.Form = url.Values{"email": {r.PostForm.Get("email")}, "from": {r.PostForm.Get("from")}}
	page = formFailure(page, st)
	store.ClearError()
	h.views.Render(w, r, http.StatusUnprocessableEntity, views.PageLogin, page)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	page := views.NewPage(w, r, "Register")
	page.Form = url.Values{"role": {"developer"}}
	h.views.Render(w, r, http.StatusOK, views.PageRegister, page)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("method", "Register"))

	store := authstate.StoreFromContext(r.Context())
	if err := r.ParseForm(); err != nil || store == nil {
		l.WarnContext(r.Context(), "Rejected registration request", slog.Any("error", err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	st := store.Register(r.Context(), r.PostForm)
	if st.IsAuthenticated && st.Error == "" {
		views.SetFlash(w, "Welcome, "+st.User.Name+". Your account is ready.")
		http.Redirect(w, r, authstate.DashboardPath, http.StatusSeeOther)
		return
	}

	page := views.NewPage(w, r, "Register")
	page.Form = url.Values{
		"name":  {r.PostForm.Get("name")},
		"email": {r.PostForm.Get("email")},
		"role":  {r.PostForm.Get("role")},
	}
	page = formFailure(page, st)
	store.ClearError()
	h.views.Render(w, r, http.StatusUnprocessableEntity, views.PageRegister, page)
}

// Logout signs the viewer out. The local session is gone even when the API
// could not be told.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if store := authstate.StoreFromContext(r.Context()); store != nil {
		store.Logout(r.Context())
	}
	views.SetFlash(w, "You have been signed out.")
	http.Redirect(w, r, authstate.LoginPath, http.StatusSeeOther)
}

// Session returns the viewer's auth state as JSON.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	var st authstate.State
	if store := authstate.StoreFromContext(r.Context()); store != nil {
		st = store.State()
	}
	api.WriteJSONResponse(w, r, http.StatusOK, st)
}

// formFailure puts a failed submission on the page: field errors next to
// their inputs, anything else as the page error.
func formFailure(page views.Page, st authstate.State) views.Page {
	if st.Validation != nil {
		page = page.WithValidation(st.Validation)
		if len(page.FieldErrors) > 0 {
			return page
		}
	}
	page.Error = st.Error
	return page
}
