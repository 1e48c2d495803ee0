package auth

import "context"

type contextKey string

const storeKey contextKey = "authStore"

// ContextWithStore attaches the viewer's Store to ctx.
func ContextWithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey, s)
}

// StoreFromContext returns the Store attached by ContextWithStore, or nil.
func StoreFromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeKey).(*Store)
	return s
}
