// ABOUTME: Tests for the submission HTTP API handlers
// ABOUTME: Verifies check decisions, error mapping, auditing and authentication

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/submission-gateway/internal/auth"
	"github.com/2389/submission-gateway/internal/config"
	"github.com/2389/submission-gateway/internal/window"
)

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.HTTPAddr = "localhost:0"
	cfg.Store.Backend = config.BackendMemory
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config) (*Gateway, *window.MemoryStore) {
	t.Helper()
	if cfg == nil {
		cfg = newTestConfig()
	}
	store := window.NewMemoryStore()
	gw := NewWithStore(cfg, store, discardLogger())
	t.Cleanup(func() { _ = gw.gracefulShutdown() })
	return gw, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func check(t *testing.T, gw *Gateway, formID, instanceID string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, gw.Handler(), http.MethodPost, "/api/submissions/check",
		CheckRequest{FormID: formID, InstanceID: instanceID}, nil)
}

func decodeCheck(t *testing.T, rec *httptest.ResponseRecorder) CheckResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

// waitForWindow blocks until the background writer has recorded instanceID.
func waitForWindow(t *testing.T, store window.Store, key, instanceID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		items, err := store.Fetch(context.Background(), key)
		return err == nil && slices.Contains(items, instanceID)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleCheck_Scenario(t *testing.T) {
	gw, store := newTestGateway(t, nil)

	resp := decodeCheck(t, check(t, gw, "abc", "i1"))
	assert.True(t, resp.New)
	assert.Equal(t, "abc", resp.FormID)
	assert.Equal(t, "i1", resp.InstanceID)
	waitForWindow(t, store, "su:abc", "i1")

	assert.False(t, decodeCheck(t, check(t, gw, "abc", "i1")).New)

	assert.True(t, decodeCheck(t, check(t, gw, "abc", "i2")).New)
	waitForWindow(t, store, "su:abc", "i2")

	items, err := store.Fetch(context.Background(), "su:abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"i2", "i1"}, items)
}

func TestHandleCheck_AtomicConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Dedupe.Atomic = true
	gw, _ := newTestGateway(t, cfg)

	assert.True(t, decodeCheck(t, check(t, gw, "abc", "i1")).New)
	assert.False(t, decodeCheck(t, check(t, gw, "abc", "i1")).New)
}

func TestHandleCheck_Validation(t *testing.T) {
	gw, _ := newTestGateway(t, nil)

	tests := []struct {
		name       string
		formID     string
		instanceID string
	}{
		{"missing form id", "", "i1"},
		{"missing instance id", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := check(t, gw, tt.formID, tt.instanceID)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec), "not provided")
		})
	}
}

func TestHandleCheck_StoreUnavailable(t *testing.T) {
	gw, store := newTestGateway(t, nil)
	require.NoError(t, store.Close())

	rec := check(t, gw, "abc", "i1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "submission store unavailable", decodeError(t, rec))
}

func TestHandleCheck_BadRequests(t *testing.T) {
	gw, _ := newTestGateway(t, nil)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"GET not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid JSON", http.MethodPost, "{not json", http.StatusBadRequest},
		{"trailing data", http.MethodPost, `{"form_id":"a","instance_id":"b"} {}`, http.StatusBadRequest},
		{"oversized body", http.MethodPost, `{"form_id":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/submissions/check", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			gw.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandleRecord_WritesAuditLog(t *testing.T) {
	cfg := newTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.Path = filepath.Join(t.TempDir(), "submissions.log")
	gw, _ := newTestGateway(t, cfg)

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/submissions",
		RecordRequest{FormID: "abc", InstanceID: "i2", DeprecatedID: "i1"}, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.NoError(t, gw.Shutdown(context.Background()))

	data, err := os.ReadFile(cfg.Audit.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), ",i2,abc,i1\n"), "got %q", data)
}

func TestHandleRecord_AuditDisabled(t *testing.T) {
	gw, _ := newTestGateway(t, nil)

	rec := doJSON(t, gw.Handler(), http.MethodPost, "/api/submissions",
		RecordRequest{FormID: "abc", InstanceID: "i1"}, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, gw.Handler(), http.MethodGet, "/api/submissions", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_RequiresTokenWhenSecretSet(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.JWTSecret = "test-secret-key-for-jwt-signing"
	gw, _ := newTestGateway(t, cfg)

	rec := check(t, gw, "abc", "i1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate("collector-1", time.Hour)
	require.NoError(t, err)

	rec = doJSON(t, gw.Handler(), http.MethodPost, "/api/submissions/check",
		CheckRequest{FormID: "abc", InstanceID: "i1"},
		http.Header{"Authorization": {"Bearer " + token}})
	assert.True(t, decodeCheck(t, rec).New)

	// Health stays open
	rec = doJSON(t, gw.Handler(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	gw, _ := newTestGateway(t, nil)

	rec := doJSON(t, gw.Handler(), http.MethodGet, "/health", nil, nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36, "generated UUID")

	rec = doJSON(t, gw.Handler(), http.MethodGet, "/health", nil,
		http.Header{"X-Request-Id": {"req-42"}})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
