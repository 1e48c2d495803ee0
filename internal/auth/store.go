// Package auth holds the per-browser authentication state of the console and
// the route guard that decides which pages a viewer may open.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-admin-console/app/observability/metrics"
	"github.com/FACorreiaa/go-admin-console/internal/apiclient"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

// Request kinds for the stale guard. Sign-in and registration both replace
// the session and share a sequence.
const (
	sessionOp  = "session"
	refreshOp  = "refresh"
	passwordOp = "password"
)

// State is a snapshot of a Store. Error is a user-facing message; Validation
// holds the field errors of the last locally rejected input.
type State struct {
	IsAuthenticated bool                       `json:"is_authenticated"`
	User            *contracts.AuthUser        `json:"user"`
	IsLoading       bool                       `json:"is_loading"`
	Error           string                     `json:"error,omitempty"`
	Validation      *contracts.ValidationError `json:"validation,omitempty"`
}

// Role returns the signed-in user's role, or nil.
func (s State) Role() *contracts.Role {
	if s.User == nil {
		return nil
	}
	r := s.User.Role
	return &r
}

// Observer is told about every change of the held session; nil means signed
// out. It is called with the store locked and must not call back into it.
type Observer func(session *contracts.Session)

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithStaleGuard makes the store drop a response when a newer response of the
// same kind has already been applied, or when the viewer signed out after the
// request was sent. Without it the last response to arrive wins.
func WithStaleGuard() Option {
	return func(s *Store) { s.staleGuard = true }
}

type ticket struct {
	op    string
	seq   uint64
	epoch uint64
}

// Store is the authentication state of one browser session. All methods are
// safe for concurrent use.
type Store struct {
	api      apiclient.AuthAPI
	logger   *slog.Logger
	metrics  *metrics.AppMetrics
	now      func() time.Time
	observer Observer

	mu         sync.Mutex
	session    *contracts.Session
	inflight   int
	errMsg     string
	validation *contracts.ValidationError
	closed     bool

	staleGuard bool
	epoch      uint64
	issued     map[string]uint64
	applied    map[string]uint64
}

// NewStore creates a signed-out store that talks to api.
func NewStore(api apiclient.AuthAPI, opts ...Option) *Store {
	s := &Store{
		api:     api,
		logger:  slog.Default(),
		now:     time.Now,
		issued:  map[string]uint64{},
		applied: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		IsAuthenticated: s.session != nil,
		IsLoading:       s.inflight > 0,
		Error:           s.errMsg,
		Validation:      s.validation,
	}
	if s.session != nil {
		u := s.session.User
		st.User = &u
	}
	return st
}

// Session returns a copy of the held session, or nil when signed out.
func (s *Store) Session() *contracts.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Login validates input locally, then signs in. On failure the previous
// session, if any, is kept and Error is set.
func (s *Store) Login(ctx context.Context, input any) State {
	ctx, span := otel.Tracer("AuthStore").Start(ctx, "Login")
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"))

	req, err := contracts.LoginSchema.Parse(input)
	if err != nil {
		s.metrics.RecordLogin(ctx, "invalid")
		return s.reject(err)
	}

	t, ok := s.begin(sessionOp)
	if !ok {
		return s.State()
	}
	res, err := s.api.Login(ctx, req)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Login failed")
		s.metrics.RecordLogin(ctx, "error")
	} else {
		l.InfoContext(ctx, "User signed in", slog.Int64("user_id", res.User.ID))
		s.metrics.RecordLogin(ctx, "success")
	}
	return s.end(ctx, t, err, func() {
		sess := contracts.NewSession(res.Tokens, res.User, s.now())
		s.setSession(&sess)
	})
}

// Register validates the registration form locally, so a confirmation
// mismatch never reaches the network, then creates the account and signs in.
func (s *Store) Register(ctx context.Context, input any) State {
	ctx, span := otel.Tracer("AuthStore").Start(ctx, "Register")
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"))

	form, err := contracts.RegisterFormSchema.Parse(input)
	if err != nil {
		return s.reject(err)
	}

	t, ok := s.begin(sessionOp)
	if !ok {
		return s.State()
	}
	res, err := s.api.Register(ctx, form.Request())
	if err != nil {
		l.WarnContext(ctx, "Registration failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Registration failed")
	} else {
		l.InfoContext(ctx, "User registered", slog.Int64("user_id", res.User.ID))
	}
	return s.end(ctx, t, err, func() {
		sess := contracts.NewSession(res.Tokens, res.User, s.now())
		s.setSession(&sess)
	})
}

// Logout signs out immediately and then tells the server. A failure to reach
// the server is only logged; the local session stays cleared.
func (s *Store) Logout(ctx context.Context) State {
	ctx, span := otel.Tracer("AuthStore").Start(ctx, "Logout")
	defer span.End()
	l := s.logger.With(slog.String("method", "Logout"))

	s.mu.Lock()
	var token string
	if s.session != nil {
		token = s.session.AccessToken
	}
	s.epoch++
	s.errMsg = ""
	s.validation = nil
	s.setSession(nil)
	st := s.stateLocked()
	s.mu.Unlock()

	if token == "" {
		return st
	}
	if err := s.api.Logout(ctx, token); err != nil {
		l.WarnContext(ctx, "Server-side logout failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Server-side logout failed")
	}
	return st
}

// ClearError removes any error message. Calling it repeatedly has no effect.
func (s *Store) ClearError() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.validation = nil
	return s.stateLocked()
}

// SetUser merges patch into the signed-in user. It does nothing when signed out.
func (s *Store) SetUser(patch contracts.UserPatch) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil && !s.closed {
		next := *s.session
		next.User = patch.Apply(next.User)
		s.setSession(&next)
	}
	return s.stateLocked()
}

// Refresh trades the refresh token for a new access token. A rejected refresh
// token signs the viewer out.
func (s *Store) Refresh(ctx context.Context) State {
	ctx, span := otel.Tracer("AuthStore").Start(ctx, "Refresh")
	defer span.End()

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return s.State()
	}
	previous := s.session.Tokens()
	s.mu.Unlock()

	t, ok := s.begin(refreshOp)
	if !ok {
		return s.State()
	}
	res, err := s.api.Refresh(ctx, previous.RefreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Refresh failed")
	}
	return s.end(ctx, t, err, func() {
		if s.session == nil {
			return
		}
		next := *s.session
		next.SetTokens(res.Tokens(previous), s.now())
		s.setSession(&next)
	})
}

// ChangePassword validates input locally, then changes the signed-in user's
// password.
func (s *Store) ChangePassword(ctx context.Context, input any) State {
	ctx, span := otel.Tracer("AuthStore").Start(ctx, "ChangePassword")
	defer span.End()
	l := s.logger.With(slog.String("method", "ChangePassword"))

	req, err := contracts.ChangePasswordSchema.Parse(input)
	if err != nil {
		return s.reject(err)
	}
	token, ok := s.Authorize(ctx)
	if !ok {
		return s.State()
	}

	t, ok := s.begin(passwordOp)
	if !ok {
		return s.State()
	}
	err = s.api.ChangePassword(ctx, token, req)
	if err != nil {
		l.WarnContext(ctx, "Password change failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password change failed")
	}
	return s.end(ctx, t, err, func() {})
}

// Authorize returns the access token for an authenticated API call. An
// expired token is refreshed once; if that fails the viewer is signed out.
func (s *Store) Authorize(ctx context.Context) (string, bool) {
	s.mu.Lock()
	if s.session == nil || s.closed {
		s.mu.Unlock()
		return "", false
	}
	if !s.session.Expired(s.now()) {
		token := s.session.AccessToken
		s.mu.Unlock()
		return token, true
	}
	hasRefresh := s.session.RefreshToken != ""
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Access token expired", slog.String("method", "Authorize"))
	if hasRefresh {
		if st := s.Refresh(ctx); st.IsAuthenticated {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.session != nil && !s.session.Expired(s.now()) {
				return s.session.AccessToken, true
			}
			return "", false
		}
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return "", false
}

// Fail records the failure of an authenticated API call made on the viewer's
// behalf. An authentication failure signs the viewer out.
func (s *Store) Fail(err error) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		return s.stateLocked()
	}
	if apiclient.IsUnauthenticated(err) && s.session != nil {
		s.expireLocked()
		return s.stateLocked()
	}
	s.errMsg = apiclient.DisplayMessage(err)
	s.validation, _ = contracts.AsValidationError(err)
	return s.stateLocked()
}

// Restore installs a previously persisted session. Expired sessions without a
// refresh token are ignored.
func (s *Store) Restore(sess contracts.Session) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.stateLocked()
	}
	if sess.Expired(s.now()) && sess.RefreshToken == "" {
		return s.stateLocked()
	}
	s.session = &sess
	return s.stateLocked()
}

// Close releases the store. Later calls leave it signed out.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.session = nil
	s.observer = nil
}

func (s *Store) reject(err error) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = apiclient.DisplayMessage(err)
	s.validation, _ = contracts.AsValidationError(err)
	return s.stateLocked()
}

func (s *Store) begin(op string) (ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ticket{}, false
	}
	s.inflight++
	s.issued[op]++
	return ticket{op: op, seq: s.issued[op], epoch: s.epoch}, true
}

// end applies the outcome of a request started with begin. apply runs with the
// store locked and only on success.
func (s *Store) end(ctx context.Context, t ticket, err error, apply func()) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if s.closed {
		return s.stateLocked()
	}
	if s.isStale(t) {
		s.logger.DebugContext(ctx, "Discarding stale response",
			slog.String("op", t.op), slog.Uint64("seq", t.seq))
		return s.stateLocked()
	}

	if err != nil {
		if apiclient.IsUnauthenticated(err) && t.op != sessionOp && s.session != nil {
			s.expireLocked()
			return s.stateLocked()
		}
		s.errMsg = apiclient.DisplayMessage(err)
		s.validation, _ = contracts.AsValidationError(err)
		return s.stateLocked()
	}

	s.errMsg = ""
	s.validation = nil
	apply()
	return s.stateLocked()
}

func (s *Store) isStale(t ticket) bool {
	if !s.staleGuard {
		return false
	}
	if t.epoch != s.epoch {
		return true
	}
	if t.seq < s.applied[t.op] {
		return true
	}
	s.applied[t.op] = t.seq
	return false
}

func (s *Store) expireLocked() {
	s.epoch++
	s.errMsg = "Your session has expired. Please sign in again."
	s.validation = nil
	s.setSession(nil)
}

func (s *Store) setSession(sess *contracts.Session) {
	s.session = sess
	if s.observer != nil {
		s.observer(sess)
	}
}
