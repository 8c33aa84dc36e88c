// ABOUTME: Submission audit recorder backed by a rotating log file
// ABOUTME: Appends one CSV line per accepted submission; failures never reach the caller

package audit

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Recorder records accepted submissions.
type Recorder interface {
	Record(formID, instanceID, deprecatedID string)
	Close() error
}

// Options configures a FileRecorder.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
	Logger     *slog.Logger
}

// FileRecorder appends audit lines to an io.WriteCloser, by default a
// lumberjack rotating file. Safe for concurrent use.
type FileRecorder struct {
	mu     sync.Mutex
	out    io.WriteCloser
	now    func() time.Time
	logger *slog.Logger
}

// NewFileRecorder creates a recorder writing to opts.Path. The file is
// opened lazily on the first record.
func NewFileRecorder(opts Options) *FileRecorder {
	return NewWriterRecorder(&lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	}, opts.Logger)
}

// NewWriterRecorder creates a recorder writing to out.
func NewWriterRecorder(out io.WriteCloser, logger *slog.Logger) *FileRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRecorder{
		out:    out,
		now:    time.Now,
		logger: logger.With("component", "audit"),
	}
}

// Record appends one line. Errors are logged and swallowed.
func (r *FileRecorder) Record(formID, instanceID, deprecatedID string) {
	line := formatLine(r.now(), formID, instanceID, deprecatedID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := io.WriteString(r.out, line); err != nil {
		r.logger.Error("failed to write audit record",
			"form_id", formID,
			"instance_id", instanceID,
			"error", err)
	}
}

// Close closes the underlying writer.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Close()
}

func formatLine(ts time.Time, formID, instanceID, deprecatedID string) string {
	return strings.Join([]string{
		ts.UTC().Format(time.RFC3339Nano),
		instanceID,
		formID,
		deprecatedID,
	}, ",") + "\n"
}

// Nop discards every record.
type Nop struct{}

// Record does nothing.
func (Nop) Record(string, string, string) {}

// Close does nothing.
func (Nop) Close() error { return nil }

// New returns a FileRecorder when enabled, otherwise Nop. An enabled
// recorder without a path degrades to Nop with a warning.
func New(enabled bool, opts Options) Recorder {
	if !enabled {
		return Nop{}
	}
	if opts.Path == "" {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("audit enabled without a path, submissions will not be recorded")
		return Nop{}
	}
	return NewFileRecorder(opts)
}
