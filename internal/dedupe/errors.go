// ABOUTME: Error taxonomy for duplicate submission checks
// ABOUTME: Validation failures map to 400, store failures to 503

package dedupe

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/submission-gateway/internal/window"
)

// ErrValidation matches any *ValidationError via errors.Is.
var ErrValidation = errors.New("invalid submission identifiers")

// ErrStoreUnavailable is returned when the recency window cannot be read.
// Callers must treat it as "cannot determine", never as new or duplicate.
var ErrStoreUnavailable = window.ErrUnavailable

// ValidationError reports a missing form or instance identifier. It is
// returned before any store access.
type ValidationError struct {
	FormID     string
	InstanceID string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot check instance id: form id (%q) or instance id (%q) not provided",
		e.FormID, e.InstanceID)
}

// StatusCode returns the HTTP status for a client-facing response.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// storeError wraps a fetch failure so it always matches ErrStoreUnavailable.
func storeError(op, key string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, op, key, err)
}
