// ABOUTME: Authentication context for tracking the calling client through handlers
// ABOUTME: Provides WithClient/ClientFromContext for propagating identity via context

package auth

import "context"

// clientContextKey is the key type for storing the client ID in context.Context.
type clientContextKey struct{}

// WithClient returns a new context carrying the authenticated client ID.
func WithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientContextKey{}, clientID)
}

// ClientFromContext returns the client ID, or "" for anonymous requests.
func ClientFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey{}).(string)
	return id
}
