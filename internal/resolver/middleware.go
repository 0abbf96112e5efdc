package resolver

import (
	"context"
	"net/http"

	"github.com/flowscan/batchload/internal/store"
)

type contextKey struct{}

// WithLoaders returns a copy of ctx carrying the loaders
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, contextKey{}, loaders)
}

// For returns the loaders of the request ctx belongs to, nil outside of a request
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(contextKey{}).(*Loaders)
	return loaders
}

// Middleware gives every request its own loaders
func Middleware(s store.EntityStore, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = WithLoaders(ctx, New(ctx, s, opts))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
