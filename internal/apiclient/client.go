// Package apiclient is a typed HTTP client for the user-management API. Every
// response body is parsed through the matching contracts schema and every
// failure is reported as an *APIError or a *NetworkError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-admin-console/app/observability/metrics"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

const maxBodyBytes = 1 << 20

// Ensure implementation satisfies the interface
var _ API = (*Client)(nil)

// AuthAPI covers the /auth endpoints.
type AuthAPI interface {
	Login(ctx context.Context, req contracts.LoginRequest) (contracts.AuthResult, error)
	Register(ctx context.Context, req contracts.RegisterRequest) (contracts.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (contracts.RefreshResponse, error)
	ChangePassword(ctx context.Context, token string, req contracts.ChangePasswordRequest) error
	Me(ctx context.Context, token string) (contracts.AuthUser, error)
	Logout(ctx context.Context, token string) error
}

// UsersAPI covers the /users endpoints. All of them require a token.
type UsersAPI interface {
	ListUsers(ctx context.Context, token string, q contracts.UserQuery) (contracts.UserListResponse, error)
	GetUser(ctx context.Context, token string, id int64) (contracts.UserDetail, error)
	CreateUser(ctx context.Context, token string, req contracts.CreateUserRequest) (contracts.User, error)
	UpdateUser(ctx context.Context, token string, id int64, req contracts.UpdateUserRequest) (contracts.User, error)
	ActivateUser(ctx context.Context, token string, id int64) error
	DeactivateUser(ctx context.Context, token string, id int64) error
	ResetPassword(ctx context.Context, token string, req contracts.ResetPasswordRequest) error
	DeleteUser(ctx context.Context, token string, id int64) error
	UserStats(ctx context.Context, token string) (contracts.UserStats, error)
	SearchUsers(ctx context.Context, token, term string, limit int) ([]contracts.User, error)
}

// API is the whole surface of the user-management API.
type API interface {
	AuthAPI
	UsersAPI
}

// Client talks to the API at a fixed base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client. Timeouts are the
// caller's to configure here.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRateLimit throttles outgoing requests to rps with the given burst. A
// non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// call performs r and parses the envelope's data with schema. A nil schema
// ignores the data.
func call[T any](ctx context.Context, c *Client, r request, schema *contracts.Schema[T]) (T, error) {
	var zero T
	data, err := c.do(ctx, r)
	if err != nil {
		return zero, err
	}
	if schema == nil {
		return zero, nil
	}
	out, err := schema.Parse(data)
	if err != nil {
		c.logger.ErrorContext(ctx, "Response did not match contract",
			slog.String("method", r.op), slog.Any("error", err))
		return zero, &NetworkError{Op: r.op, Err: fmt.Errorf("decoding %s: %w", schema.Name(), err)}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, r request) (any, error) {
	ctx, span := otel.Tracer("APIClient").Start(ctx, r.op, trace.WithAttributes(
		attribute.String("http.method", r.method),
		attribute.String("api.path", r.path),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", r.op), slog.String("path", r.path))
	l.DebugContext(ctx, "Calling API")

	fail := func(err error, msg string) (any, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, err
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		if _, ok := contracts.AsValidationError(err); ok {
			return fail(&APIError{Op: r.op, Kind: KindAuthentication, Status: http.StatusUnauthorized,
				Code: "AuthenticationError", Message: "not signed in"}, "Missing credentials")
		}
		return fail(&NetworkError{Op: r.op, Err: err}, "Failed to build request")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(&NetworkError{Op: r.op, Err: err}, "Rate limiter wait failed")
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		l.ErrorContext(ctx, "API request failed", slog.Any("error", err))
		c.metrics.RecordAPIRequest(ctx, r.op, 0, time.Since(start))
		return fail(&NetworkError{Op: r.op, Err: err}, "Transport failure")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.metrics.RecordAPIRequest(ctx, r.op, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		return fail(&NetworkError{Op: r.op, Err: fmt.Errorf("reading response: %w", err)}, "Failed to read body")
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeError(r.op, resp.StatusCode, body)
		l.WarnContext(ctx, "API returned an error",
			slog.Int("status", resp.StatusCode),
			slog.String("kind", apiErr.Kind.String()),
			slog.String("message", apiErr.Message))
		return fail(apiErr, apiErr.Kind.String())
	}

	env, err := contracts.SuccessSchema.Parse(body)
	if err != nil {
		return fail(&NetworkError{Op: r.op, Err: fmt.Errorf("decoding envelope: %w", err)}, "Undecodable body")
	}
	if !env.Success {
		return fail(&APIError{Op: r.op, Kind: KindUnexpected, Status: resp.StatusCode, Message: env.Message},
			"Unsuccessful envelope")
	}

	span.SetStatus(codes.Ok, "API call succeeded")
	l.DebugContext(ctx, "API call succeeded", slog.Int("status", resp.StatusCode))
	return env.Data, nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := *c.baseURL
	u.Path = u.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.token != "" || requiresToken(r.path) {
		h, err := contracts.AuthHeaderSchema.Parse(contracts.AuthHeader{
			Authorization: contracts.TokenTypeBearer + " " + r.token,
		})
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", h.Authorization)
	}
	return req, nil
}

// requiresToken reports whether path is only reachable with a bearer token.
func requiresToken(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", "/auth/refresh":
		return false
	}
	return true
}

func decodeError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, Kind: KindForStatus(status), Status: status}
	env, err := contracts.ErrorSchema.Parse(body)
	if err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	apiErr.Code = env.Error
	apiErr.Message = env.Message
	apiErr.Details = env.Details
	return apiErr
}

// IsUnauthenticated reports whether err means the token is missing, expired or revoked.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
