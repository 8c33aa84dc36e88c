// Package window stores the per-form recency windows used for duplicate
// submission detection.
//
// # Model
//
// A window is a list of instance identifiers keyed by form. New identifiers
// are pushed to the front and the list is trimmed to a fixed size, so the
// oldest entries fall off the tail. The list is not a set: the store never
// rejects a value that is already present.
//
// # Backends
//
//   - RedisStore: LRANGE / LPUSH / LTRIM against a shared redis. The default.
//   - SQLiteStore: single-node fallback backed by modernc.org/sqlite.
//   - MemoryStore: process-local, for development and tests.
//
// All backends implement AtomicStore in addition to Store. Callers that do not
// opt in to PushIfAbsent keep the weaker fetch-then-push protocol, which
// allows two concurrent writers to both observe a value as absent.
//
// # Errors
//
// Backend and connectivity failures wrap ErrUnavailable. An unknown key is not
// an error: Fetch returns an empty slice.
package window
