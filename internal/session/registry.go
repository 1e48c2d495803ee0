// Package session binds browser sessions, identified by a cookie, to their
// auth.Store.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-admin-console/app/observability/metrics"
	"github.com/FACorreiaa/go-admin-console/config"
	"github.com/FACorreiaa/go-admin-console/internal/auth"
	"github.com/FACorreiaa/go-admin-console/internal/contracts"
)

const persistTimeout = 2 * time.Second

// Persister keeps signed-in sessions outside the process so they survive a
// restart and can be shared between console instances.
type Persister interface {
	// Load returns nil and no error when id is unknown.
	Load(ctx context.Context, id string) (*contracts.Session, error)
	Save(ctx context.Context, id string, s *contracts.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// StoreFactory creates a Store for a new browser session. The registry passes
// the options that wire persistence in.
type StoreFactory func(opts ...auth.Option) *auth.Store

// Registry maps session ids to Stores. Idle entries expire after the
// configured TTL and their Store is closed.
type Registry struct {
	items     *cache.Cache
	newStore  StoreFactory
	persister Persister
	cfg       config.SessionConfig
	logger    *slog.Logger
	metrics   *metrics.AppMetrics
}

type Option func(*Registry)

func WithPersister(p Persister) Option {
	return func(r *Registry) { r.persister = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func NewRegistry(newStore StoreFactory, cfg config.SessionConfig, opts ...Option) *Registry {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	r := &Registry{
		items:    cache.New(cfg.TTL, cfg.CleanupInterval),
		newStore: newStore,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.items.OnEvicted(func(id string, v any) {
		if store, ok := v.(*auth.Store); ok {
			store.Close()
		}
		r.metrics.SessionClosed(context.Background())
		r.logger.Debug("Session evicted", slog.String("session_id", id))
	})
	return r
}

// Middleware attaches the viewer's Store to the request context, creating a
// session and its cookie on first visit.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, store := r.lookup(req)
		if store == nil {
			id, store = r.create(req.Context(), uuid.NewString())
		}
		r.setCookie(w, id)
		next.ServeHTTP(w, req.WithContext(auth.ContextWithStore(req.Context(), store)))
	})
}

// Get returns the Store for id and renews its expiry.
func (r *Registry) Get(id string) (*auth.Store, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	store := v.(*auth.Store)
	r.items.SetDefault(id, store)
	return store, true
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Close closes every Store.
func (r *Registry) Close() {
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}

func (r *Registry) lookup(req *http.Request) (string, *auth.Store) {
	c, err := req.Cookie(r.cfg.CookieName)
	if err != nil {
		return "", nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", nil
	}
	if store, ok := r.Get(c.Value); ok {
		return c.Value, store
	}
	if r.persister == nil {
		return "", nil
	}

	l := r.logger.With(slog.String("method", "lookup"), slog.String("session_id", c.Value))
	ctx, cancel := context.WithTimeout(req.Context(), persistTimeout)
	defer cancel()
	sess, err := r.persister.Load(ctx, c.Value)
	if err != nil {
		l.WarnContext(ctx, "Failed to load persisted session", slog.Any("error", err))
		return "", nil
	}
	if sess == nil {
		return "", nil
	}
	id, store := r.create(req.Context(), c.Value)
	store.Restore(*sess)
	l.InfoContext(ctx, "Session restored from persistence")
	return id, store
}

// create registers a Store under id. When a concurrent request registered the
// same id first, that Store wins.
func (r *Registry) create(ctx context.Context, id string) (string, *auth.Store) {
	var opts []auth.Option
	if r.cfg.StaleGuard {
		opts = append(opts, auth.WithStaleGuard())
	}
	if r.persister != nil {
		opts = append(opts, auth.WithObserver(r.persist(id)))
	}
	store := r.newStore(opts...)

	if err := r.items.Add(id, store, cache.DefaultExpiration); err != nil {
		if existing, ok := r.Get(id); ok {
			store.Close()
			return id, existing
		}
		r.items.SetDefault(id, store)
	}
	r.metrics.SessionOpened(ctx)
	return id, store
}

func (r *Registry) persist(id string) auth.Observer {
	return func(sess *contracts.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		var err error
		if sess == nil {
			err = r.persister.Delete(ctx, id)
		} else {
			err = r.persister.Save(ctx, id, sess, r.cfg.TTL)
		}
		if err != nil {
			r.logger.WarnContext(ctx, "Failed to persist session",
				slog.String("session_id", id), slog.Any("error", err))
		}
	}
}

func (r *Registry) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(r.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   r.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
