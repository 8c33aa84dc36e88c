// ABOUTME: HTTP API handlers exposing the duplicate checker and audit recorder
// ABOUTME: Provides POST /api/submissions/check and POST /api/submissions endpoints

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/2389/submission-gateway/internal/auth"
	"github.com/2389/submission-gateway/internal/dedupe"
)

// maxBodyBytes caps request bodies; identifiers are short.
const maxBodyBytes = 64 << 10

// CheckRequest is the JSON request body for POST /api/submissions/check.
type CheckRequest struct {
	FormID     string `json:"form_id"`
	InstanceID string `json:"instance_id"`
}

// CheckResponse is the JSON response for POST /api/submissions/check.
type CheckResponse struct {
	New        bool   `json:"new"`
	FormID     string `json:"form_id"`
	InstanceID string `json:"instance_id"`
}

// RecordRequest is the JSON request body for POST /api/submissions.
type RecordRequest struct {
	FormID       string `json:"form_id"`
	InstanceID   string `json:"instance_id"`
	DeprecatedID string `json:"deprecated_id,omitempty"`
}

// handleCheck handles POST /api/submissions/check requests.
func (g *Gateway) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	isNew, err := g.checker.IsNew(r.Context(), req.FormID, req.InstanceID)
	if err != nil {
		var verr *dedupe.ValidationError
		switch {
		case errors.As(err, &verr):
			g.sendJSONError(w, verr.StatusCode(), verr.Error())
		case errors.Is(err, dedupe.ErrStoreUnavailable):
			g.logger.Error("duplicate check failed",
				"form_id", req.FormID,
				"instance_id", req.InstanceID,
				"error", err)
			g.sendJSONError(w, http.StatusServiceUnavailable, "submission store unavailable")
		default:
			g.logger.Error("duplicate check failed", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	g.logger.Debug("checked submission",
		"form_id", req.FormID,
		"instance_id", req.InstanceID,
		"new", isNew,
		"client", auth.ClientFromContext(r.Context()))

	g.sendJSON(w, http.StatusOK, CheckResponse{
		New:        isNew,
		FormID:     req.FormID,
		InstanceID: req.InstanceID,
	})
}

// handleRecord handles POST /api/submissions requests. Recording is fire and
// forget, so any well-formed body is accepted.
func (g *Gateway) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	g.checker.Add(req.FormID, req.InstanceID, req.DeprecatedID)
	w.WriteHeader(http.StatusAccepted)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Reject trailing garbage after the object
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// sendJSON writes a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}
