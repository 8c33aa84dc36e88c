// ABOUTME: Entry point for submission-gateway duplicate submission server
// ABOUTME: Serves the check API and offers check, token and health subcommands

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/submission-gateway/internal/auth"
	"github.com/2389/submission-gateway/internal/config"
	"github.com/2389/submission-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _               _         _
 ___ _   _| |__  _ __ ___ (_)___ ___(_) ___  _ __
/ __| | | | '_ \| '_ ' _ \| / __/ __| |/ _ \| '_ \
\__ \ |_| | |_) | | | | | | \__ \__ \ | (_) | | | |
|___/\__,_|_.__/|_| |_| |_|_|___/___/_|\___/|_| |_|
`

const defaultTokenTTL = 30 * 24 * time.Hour

// getConfigPath returns the path to the gateway config file.
// Priority: SUBMISSION_CONFIG env var > XDG_CONFIG_HOME/submission-gateway/config.yaml > ~/.config/submission-gateway/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SUBMISSION_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "submission-gateway", "config.yaml")
}

func usage() {
	fmt.Println("Usage: submission-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                        Start the gateway server")
	fmt.Println("  check FORM_ID INSTANCE_ID    Check one submission against its form's window")
	fmt.Println("  token CLIENT [--ttl 720h]    Issue an API token for a client")
	fmt.Println("  health                       Check gateway readiness")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "check":
		err = runCheck(ctx, os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Store:     %s\n", describeStore(cfg))
	green.Print("    ▶ ")
	fmt.Printf("Window:    %d per form (prefix %q)\n", cfg.Dedupe.WindowSize, cfg.Dedupe.KeyPrefix)

	if cfg.Dedupe.Atomic {
		green.Print("    ▶ ")
		fmt.Println("Atomic:    enabled")
	}
	if cfg.Audit.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Audit:     %s\n", cfg.Audit.Path)
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ⚠ ")
		fmt.Println("Auth:      disabled (no jwt_secret)")
	}
	if cfg.IsTest() {
		yellow.Print("    ⚠ ")
		fmt.Println("Env:       test")
	}
	fmt.Println()

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// describeStore summarizes the configured backend for the startup banner.
func describeStore(cfg *config.Config) string {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		db := cfg.Redis.DB
		if cfg.IsTest() {
			db = cfg.Redis.TestDB
		}
		return fmt.Sprintf("redis %s db=%d", cfg.Redis.Addr(), db)
	case config.BackendSQLite:
		return "sqlite " + cfg.SQLite.Path
	default:
		return cfg.Store.Backend
	}
}

// runCheck performs a single duplicate check against the configured store
// and waits for the resulting window write before exiting.
func runCheck(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: submission-gateway check FORM_ID INSTANCE_ID")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	s, err := gateway.InitStore(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	checker := gateway.NewChecker(cfg, s, nil, logger)
	isNew, checkErr := checker.IsNew(ctx, args[0], args[1])

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Dedupe.WriteTimeout+time.Second)
	defer cancel()
	if err := checker.Close(drainCtx); err != nil {
		logger.Warn("window write did not finish", "error", err)
	}

	if checkErr != nil {
		return checkErr
	}
	if isNew {
		fmt.Println("new")
	} else {
		fmt.Println("duplicate")
	}
	return nil
}

// runToken issues a signed API token for a client id.
func runToken(args []string) error {
	// Supports both "--ttl value" and "--ttl=value" formats
	var clientID string
	ttl := defaultTokenTTL
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var raw string
		switch {
		case arg == "--ttl":
			if i+1 >= len(args) {
				return fmt.Errorf("--ttl requires a value")
			}
			raw = args[i+1]
			i++
		case strings.HasPrefix(arg, "--ttl="):
			raw = strings.TrimPrefix(arg, "--ttl=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if clientID != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			clientID = arg
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid --ttl %q", raw)
		}
		ttl = d
	}

	if clientID == "" {
		return fmt.Errorf("usage: submission-gateway token CLIENT [--ttl 720h]")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(clientID, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", healthHost(cfg.Server.HTTPAddr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d", resp.StatusCode)
	}

	fmt.Println("ready")
	return nil
}

// healthHost rewrites a wildcard listen address into one a client can dial.
func healthHost(addr string) string {
	if rest, ok := strings.CutPrefix(addr, "0.0.0.0:"); ok {
		return "localhost:" + rest
	}
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
