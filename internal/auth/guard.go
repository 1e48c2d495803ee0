package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	DashboardPath = "/dashboard"
)

// GuardInput is everything the route guard looks at.
type GuardInput struct {
	IsAuthenticated bool
	Role            *contracts.Role
	RequiredRole    *contracts.Role
	Requested       string
}

// Decision is the outcome of Evaluate. From is set when the viewer is sent to
// the login page and holds the location to return to afterwards.
type Decision struct {
	Allowed  bool
	Redirect string
	From     string
}

// Evaluate decides whether a viewer may open a page. Admins may open every
// page; any other role only pages that require exactly that role.
func Evaluate(in GuardInput) Decision {
	if !in.IsAuthenticated {
		return Decision{Redirect: LoginPath, From: in.Requested}
	}
	if in.RequiredRole == nil {
		return Decision{Allowed: true}
	}
	if in.Role != nil && (*in.Role == contracts.RoleAdmin || *in.Role == *in.RequiredRole) {
		return Decision{Allowed: true}
	}
	return Decision{Redirect: DashboardPath}
}

// Location is the URL a denied viewer is redirected to.
func (d Decision) Location() string {
	if d.Redirect == LoginPath && d.From != "" {
		return LoginURL(d.From)
	}
	return d.Redirect
}

// LoginURL is the login page remembering where the viewer was going.
func LoginURL(from string) string {
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// SafeReturnPath returns from when it is a local page worth returning to
// after sign-in, and the dashboard otherwise.
func SafeReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return DashboardPath
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return DashboardPath
	}
	switch u.Path {
	case LoginPath, RegisterPath, "/logout", "/":
		return DashboardPath
	}
	return from
}

// RequireRole lets a request through when the guard allows it for the
// viewer's Store, and redirects with 303 See Other otherwise. A nil required
// role only requires a signed-in viewer.
func RequireRole(required *contracts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := currentState(r)
			d := Evaluate(GuardInput{
				IsAuthenticated: st.IsAuthenticated,
				Role:            st.Role(),
				RequiredRole:    required,
				Requested:       r.URL.RequestURI(),
			})
			if !d.Allowed {
				http.Redirect(w, r, d.Location(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth is RequireRole(nil).
func RequireAuth(next http.Handler) http.Handler {
	return RequireRole(nil)(next)
}

// RequireAdmin only lets admins through.
func RequireAdmin(next http.Handler) http.Handler {
	admin := contracts.RoleAdmin
	return RequireRole(&admin)(next)
}

// RedirectIfAuthenticated sends signed-in viewers away from public pages such
// as login and registration.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentState(r).IsAuthenticated {
			http.Redirect(w, r, SafeReturnPath(r.URL.Query().Get("from")), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentState reads the viewer's Store, first giving it the chance to notice
// an expired token.
func currentState(r *http.Request) State {
	store := StoreFromContext(r.Context())
	if store == nil {
		return State{}
	}
	if store.State().IsAuthenticated {
		store.Authorize(r.Context())
	}
	return store.State()
}
