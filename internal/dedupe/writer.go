// ABOUTME: Background worker pool that applies recency window writes
// ABOUTME: Push and trim run off the request path; failures are logged, never retried

package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/submission-gateway/internal/window"
)

// writeJob is one push-then-trim against a window.
type writeJob struct {
	key   string
	value string
}

// writer drains a bounded queue of window writes with a fixed set of goroutines.
type writer struct {
	store   window.Store
	size    int
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	queue   chan writeJob
	closed  bool
	workers sync.WaitGroup
	pending sync.WaitGroup
}

func newWriter(store window.Store, size, workers, queueSize int, timeout time.Duration, logger *slog.Logger) *writer {
	w := &writer{
		store:   store,
		size:    size,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan writeJob, queueSize),
	}
	w.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go w.run()
	}
	return w
}

// enqueue schedules a write without blocking. It returns false if the write
// was dropped because the queue is full or the writer is closed.
func (w *writer) enqueue(key, value string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Warn("dropping window write after shutdown", "key", key, "instance_id", value)
		return false
	}

	w.pending.Add(1)
	select {
	case w.queue <- writeJob{key: key, value: value}:
		return true
	default:
		w.pending.Done()
		w.logger.Warn("window write queue full, dropping write", "key", key, "instance_id", value)
		return false
	}
}

func (w *writer) run() {
	defer w.workers.Done()
	for job := range w.queue {
		w.apply(job)
		w.pending.Done()
	}
}

// apply pushes the value and, only if that succeeded, trims the window.
// Each step gets its own deadline detached from the originating request.
func (w *writer) apply(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.Push(ctx, job.key, job.value); err != nil {
		w.logger.Error("error pushing instance id", "key", job.key, "instance_id", job.value, "error", err)
		return
	}
	if err := w.store.Trim(ctx, job.key, w.size); err != nil {
		w.logger.Error("error trimming window", "key", job.key, "error", err)
	}
}

// wait blocks until every enqueued write has been applied.
func (w *writer) wait() {
	w.pending.Wait()
}

// close stops accepting writes and waits for queued writes to drain or for
// ctx to be done. It is safe to call multiple times.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
