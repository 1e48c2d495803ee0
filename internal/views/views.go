// Package views renders the console's HTML pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"

	appMiddleware "github.com/FACorreiaa/go-admin-console/app/middleware"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one template file each.
const (
	PageLogin      = "login"
	PageRegister   = "register"
	PageDashboard  = "dashboard"
	PageUsers      = "users"
	PageUserDetail = "user_detail"
	PageUserNew    = "user_new"
	PageProfile    = "profile"
	PageError      = "error"
)

var pageNames = []string{
	PageLogin, PageRegister, PageDashboard, PageUsers,
	PageUserDetail, PageUserNew, PageProfile, PageError,
}

// Page is the data every template receives.
type Page struct {
	Title       string
	Active      string
	State       auth.State
	Flash       string
	Error       string
	FieldErrors map[string]string
	Form        url.Values
	CSRFToken   string
	Data        any
}

// NewPage starts a page for the viewer of r. It consumes the pending flash
// message, which is why it needs w.
func NewPage(w http.ResponseWriter, r *http.Request, title string) Page {
	p := Page{
		Title:     title,
		CSRFToken: appMiddleware.CSRFToken(r.Context()),
		Flash:     PopFlash(w, r),
	}
	if store := auth.StoreFromContext(r.Context()); store != nil {
		p.State = store.State()
	}
	return p
}

// WithValidation copies the field errors of err onto the page.
func (p Page) WithValidation(err *contracts.ValidationError) Page {
	if err == nil {
		return p
	}
	p.FieldErrors = err.Fields()
	if msg, ok := p.FieldErrors[""]; ok && p.Error == "" {
		p.Error = msg
	}
	return p
}

// IsAdmin reports whether the viewer is a signed-in admin.
func (p Page) IsAdmin() bool {
	return p.State.User != nil && p.State.User.Role == contracts.RoleAdmin
}

// Value is the submitted value of a form field, for re-rendering a form.
func (p Page) Value(field string) string {
	return p.Form.Get(field)
}

// FieldError is the first error reported for field.
func (p Page) FieldError(field string) string {
	return p.FieldErrors[field]
}

// Renderer executes page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(Funcs()).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page name with status. The page is rendered into a buffer
// first so a template failure still produces a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	l := v.logger.With(slog.String("method", "Render"), slog.String("page", name))

	t, ok := v.pages[name]
	if !ok {
		l.ErrorContext(r.Context(), "Unknown page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		l.ErrorContext(r.Context(), "Failed to render page",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		l.WarnContext(r.Context(), "Failed to write page", slog.Any("error", err))
	}
}

// NotFound renders the error page with 404.
func (v *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	page := NewPage(w, r, "Not found")
	page.Error = "The page you are looking for does not exist."
	v.Render(w, r, http.StatusNotFound, PageError, page)
}
