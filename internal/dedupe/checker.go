// ABOUTME: Duplicate checker deciding whether a submission instance is new for its form
// ABOUTME: Reads the recency window synchronously and records new instances in the background

package dedupe

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/2389/submission-gateway/internal/window"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultKeyPrefix    = "su:"
	DefaultWindowSize   = 100
	DefaultWriters      = 4
	DefaultQueueSize    = 1024
	DefaultWriteTimeout = 2 * time.Second
)

// Recorder receives accepted submissions for auditing. Implementations must
// not block the caller on failure.
type Recorder interface {
	Record(formID, instanceID, deprecatedID string)
}

// Options configures a Checker.
type Options struct {
	// KeyPrefix namespaces window keys in the store.
	KeyPrefix string
	// WindowSize is the number of instance ids kept per form.
	WindowSize int
	// Atomic switches to the store's PushIfAbsent when available.
	Atomic bool

	Writers      int
	QueueSize    int
	WriteTimeout time.Duration

	// Recorder is optional; nil disables Add.
	Recorder Recorder
	Logger   *slog.Logger
}

// Checker answers whether a (form, instance) pair has already been recorded
// within the form's recency window. It is safe for concurrent use.
type Checker struct {
	store    window.Store
	atomic   window.AtomicStore // nil unless Options.Atomic and supported
	prefix   string
	size     int
	writer   *writer
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Checker over store and starts its background writers.
// Call Close to drain pending writes.
func New(store window.Store, opts Options) *Checker {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.Writers <= 0 {
		opts.Writers = DefaultWriters
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dedupe")

	c := &Checker{
		store:    store,
		prefix:   opts.KeyPrefix,
		size:     opts.WindowSize,
		recorder: opts.Recorder,
		logger:   logger,
		writer:   newWriter(store, opts.WindowSize, opts.Writers, opts.QueueSize, opts.WriteTimeout, logger),
	}

	if opts.Atomic {
		if as, ok := store.(window.AtomicStore); ok {
			c.atomic = as
		} else {
			logger.Warn("store does not support atomic push, falling back to fetch-then-push")
		}
	}

	return c
}

// Key returns the store key for a form id.
func (c *Checker) Key(formID string) string {
	return c.prefix + strings.TrimSpace(formID)
}

// IsNew reports whether instanceID has not been seen in formID's recency
// window. A new instance is recorded in the background; the result does not
// wait for that write, and a failed write is only logged.
//
// Without Options.Atomic two concurrent calls for the same instance may both
// return true.
func (c *Checker) IsNew(ctx context.Context, formID, instanceID string) (bool, error) {
	if strings.TrimSpace(formID) == "" || instanceID == "" {
		return false, &ValidationError{FormID: formID, InstanceID: instanceID}
	}

	key := c.Key(formID)

	if c.atomic != nil {
		pushed, err := c.atomic.PushIfAbsent(ctx, key, instanceID, c.size)
		if err != nil {
			return false, storeError("pushing to window", key, err)
		}
		c.logger.Debug("checked instance id", "key", key, "instance_id", instanceID, "new", pushed)
		return pushed, nil
	}

	latest, err := c.store.Fetch(ctx, key)
	if err != nil {
		return false, storeError("fetching window", key, err)
	}

	if slices.Contains(latest, instanceID) {
		c.logger.Debug("instance id already recorded", "key", key, "instance_id", instanceID)
		return false, nil
	}

	c.writer.enqueue(key, instanceID)
	c.logger.Debug("instance id is new", "key", key, "instance_id", instanceID)
	return true, nil
}

// Add passes an accepted submission to the audit recorder, if any.
func (c *Checker) Add(formID, instanceID, deprecatedID string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(formID, instanceID, deprecatedID)
}

// Close stops the background writers after draining queued writes, or
// returns ctx's error if they do not finish in time. It does not close the
// underlying store.
func (c *Checker) Close(ctx context.Context) error {
	return c.writer.close(ctx)
}
