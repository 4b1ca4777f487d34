package alytica

import "context"

type contextKey struct{}

// WithContext returns a copy of ctx carrying a.
func WithContext(ctx context.Context, a *Alytica) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the client attached to ctx.
func FromContext(ctx context.Context) (*Alytica, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(contextKey{}).(*Alytica)
	return a, ok && a != nil
}

// MustFromContext returns the client attached to ctx and panics if there is
// none. A missing client means the handler is not wrapped by Middleware,
// which is an integration error rather than a runtime failure.
func MustFromContext(ctx context.Context) *Alytica {
	a, ok := FromContext(ctx)
	if !ok {
		panic("alytica: no client in context, wrap the handler with alytica.Middleware")
	}
	return a
}
