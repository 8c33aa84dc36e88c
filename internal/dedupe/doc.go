// Package dedupe decides whether a form submission instance has already been
// recorded, using a bounded per-form recency window held in a window.Store.
//
// IsNew fetches the window, tests membership and, when the instance is new,
// hands the push and trim to a background writer so the decision never waits
// on the write. Write failures are logged and dropped. Because the fetch and
// the push are separate store calls, two concurrent checks of the same
// instance can both report it as new; set Options.Atomic to use the store's
// PushIfAbsent instead when the backend supports it.
package dedupe
