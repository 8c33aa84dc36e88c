// ABOUTME: Gateway orchestrator that owns the window store, checker and HTTP server
// ABOUTME: Manages store selection, route registration and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/2389/submission-gateway/internal/audit"
	"github.com/2389/submission-gateway/internal/auth"
	"github.com/2389/submission-gateway/internal/config"
	"github.com/2389/submission-gateway/internal/dedupe"
	"github.com/2389/submission-gateway/internal/window"
)

// Gateway serves the submission API over HTTP.
type Gateway struct {
	config     *config.Config
	store      window.Store
	checker    *dedupe.Checker
	recorder   audit.Recorder
	httpServer *http.Server
	logger     *slog.Logger

	// serverID identifies this gateway instance
	serverID string
}

// InitStore creates the window store selected by cfg.Store.Backend.
func InitStore(cfg *config.Config, logger *slog.Logger) (window.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		db := cfg.Redis.DB
		if cfg.IsTest() {
			db = cfg.Redis.TestDB
		}
		logger.Info("using redis window store", "addr", cfg.Redis.Addr(), "db", db)
		return window.NewRedisStore(window.RedisOptions{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           db,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}), nil

	case config.BackendSQLite:
		dbPath := cfg.SQLite.Path
		if envPath := os.Getenv("SUBMISSION_DB_PATH"); envPath != "" {
			dbPath = envPath
		}
		s, err := window.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		return s, nil

	case config.BackendMemory:
		logger.Warn("using in-memory window store; windows are not shared and are lost on restart")
		return window.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewChecker builds a duplicate checker from the dedupe section of cfg.
func NewChecker(cfg *config.Config, s window.Store, recorder dedupe.Recorder, logger *slog.Logger) *dedupe.Checker {
	return dedupe.New(s, dedupe.Options{
		KeyPrefix:    cfg.Dedupe.KeyPrefix,
		WindowSize:   cfg.Dedupe.WindowSize,
		Atomic:       cfg.Dedupe.Atomic,
		Writers:      cfg.Dedupe.Writers,
		QueueSize:    cfg.Dedupe.QueueSize,
		WriteTimeout: cfg.Dedupe.WriteTimeout,
		Recorder:     recorder,
		Logger:       logger,
	})
}

// New creates a Gateway with the store selected by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := InitStore(cfg, logger.With("component", "store"))
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, s, logger), nil
}

// NewWithStore creates a Gateway around an existing store. The gateway takes
// ownership of s and closes it on Shutdown.
func NewWithStore(cfg *config.Config, s window.Store, logger *slog.Logger) *Gateway {
	recorder := audit.New(cfg.Audit.Enabled, audit.Options{
		Path:       cfg.Audit.Path,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		Compress:   cfg.Audit.Compress,
		Logger:     logger,
	})

	gw := &Gateway{
		config:   cfg,
		store:    s,
		checker:  NewChecker(cfg, s, recorder, logger),
		recorder: recorder,
		logger:   logger.With("component", "gateway"),
		serverID: generateServerID(),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/health/ready", gw.handleReady)

	gw.registerAPIRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           requestIDMiddleware(gw.logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw
}

// registerAPIRoutes mounts the submission API, behind JWT auth if a secret is configured.
func (g *Gateway) registerAPIRoutes(mux *http.ServeMux) {
	api := http.NewServeMux()
	api.HandleFunc("/api/submissions/check", g.handleCheck)
	api.HandleFunc("/api/submissions", g.handleRecord)

	if g.config.Auth.JWTSecret == "" {
		g.logger.Warn("auth.jwt_secret not set - submission API is unauthenticated")
		mux.Handle("/api/", api)
		return
	}

	verifier := auth.NewJWTVerifier([]byte(g.config.Auth.JWTSecret))
	mux.Handle("/api/", auth.HTTPAuthMiddleware(verifier, g.logger)(api))
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Checker returns the duplicate checker used by the API.
func (g *Gateway) Checker() *dedupe.Checker {
	return g.checker
}

// startServer serves HTTP on ln in a goroutine, returning an error channel.
func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "server_id", g.serverID)
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = g.gracefulShutdown()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("window store not reachable at startup", "error", err)
	}

	errCh := g.startServer(ln)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, drains pending window writes and closes
// the recorder and store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "draining window writes", g.checker.Close(ctx))
	errs = appendCloseError(errs, "audit close", g.recorder.Close())
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the window store answers a ping.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := g.store.Ping(ctx); err != nil {
		g.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("window store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%s)", g.config.Store.Backend)
}

// generateServerID creates a unique identifier for this gateway instance.
func generateServerID() string {
	return fmt.Sprintf("submission-gateway-%d", time.Now().UnixNano()%1000000)
}
