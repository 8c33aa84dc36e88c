// ABOUTME: Process-local recency window store guarded by a mutex
// ABOUTME: Used for development and as the reference backend in tests

package window

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore keeps windows in a map of slices. Windows are not shared
// between processes, so it only suits single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string][]string
	closed  bool
}

// NewMemoryStore creates an empty in-memory window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string][]string),
	}
}

// check returns an ErrUnavailable-wrapped error if the store is closed or
// the context is done. Must be called with mu held.
func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Fetch returns a copy of the window at key.
func (s *MemoryStore) Fetch(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.windows[key]), nil
}

// Push prepends value to the window at key.
func (s *MemoryStore) Push(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	s.pushLocked(key, value)
	return nil
}

// Trim keeps the first size elements of the window at key.
func (s *MemoryStore) Trim(ctx context.Context, key string, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}
	s.trimLocked(key, size)
	return nil
}

// PushIfAbsent atomically tests membership and pushes under the write lock.
func (s *MemoryStore) PushIfAbsent(ctx context.Context, key, value string, size int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx); err != nil {
		return false, err
	}
	if slices.Contains(s.windows[key], value) {
		return false, nil
	}
	s.pushLocked(key, value)
	s.trimLocked(key, size)
	return true, nil
}

// pushLocked must be called with mu held.
func (s *MemoryStore) pushLocked(key, value string) {
	s.windows[key] = slices.Insert(s.windows[key], 0, value)
}

// trimLocked must be called with mu held. A non-positive size is a no-op.
func (s *MemoryStore) trimLocked(key string, size int) {
	if w := s.windows[key]; size > 0 && len(w) > size {
		s.windows[key] = w[:size]
	}
}

// Ping reports an error once the store is closed.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Close marks the store closed. It is safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
