// ABOUTME: Recency window store interfaces shared by all backends
// ABOUTME: Defines Store, AtomicStore and the ErrUnavailable sentinel

package window

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing store cannot serve a request.
var ErrUnavailable = errors.New("window store unavailable")

// Store holds bounded, most-recent-first lists of instance identifiers.
type Store interface {
	// Fetch returns every element of the window at key, front first.
	// An unknown key yields an empty slice.
	Fetch(ctx context.Context, key string) ([]string, error)

	// Push prepends value to the window at key.
	Push(ctx context.Context, key, value string) error

	// Trim keeps the first size elements of the window at key.
	Trim(ctx context.Context, key string, size int) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// AtomicStore is implemented by backends that can test membership and push
// in a single step.
type AtomicStore interface {
	Store

	// PushIfAbsent prepends value and trims the window to size unless value
	// is already present. It reports whether the value was pushed.
	PushIfAbsent(ctx context.Context, key, value string, size int) (bool, error)
}
