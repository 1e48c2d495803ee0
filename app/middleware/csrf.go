package appMiddleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
)

type CSRFConfig struct {
	CookieSecure bool
	Logger       *slog.Logger
}

// NewCSRFMiddleware implements the double-submit cookie pattern. Safe methods
// get a token cookie; state-changing methods must echo it in the
// X-CSRF-Token header or the csrf_token form field.
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With(slog.String("method", r.Method), slog.String("path", r.URL.Path))

			if isSafeMethod(r.Method) {
				token, err := ensureCSRFCookie(w, r, config)
				if err != nil {
					l.ErrorContext(r.Context(), "Failed to generate CSRF token", slog.Any("error", err))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenKey, token)))
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				l.WarnContext(r.Context(), "CSRF validation failed: missing cookie token")
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			submitted := r.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = r.PostFormValue(csrfFormField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
				l.WarnContext(r.Context(), "CSRF validation failed: token mismatch")
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenKey, cookie.Value)))
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie returns the request's token, issuing a new cookie when
// there is none.
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) (string, error) {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
