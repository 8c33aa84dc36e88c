// ABOUTME: Configuration loading and parsing for submission-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvironmentTest selects the isolated test database on the window store.
const EnvironmentTest = "test"

// envVarEnvironment overrides the environment field when set.
const envVarEnvironment = "SUBMISSION_ENV"

// Store backends
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the complete submission-gateway configuration
type Config struct {
	Environment string        `yaml:"environment" toml:"environment"`
	Server      ServerConfig  `yaml:"server" toml:"server"`
	Store       StoreConfig   `yaml:"store" toml:"store"`
	Redis       RedisConfig   `yaml:"redis" toml:"redis"`
	SQLite      SQLiteConfig  `yaml:"sqlite" toml:"sqlite"`
	Dedupe      DedupeConfig  `yaml:"dedupe" toml:"dedupe"`
	Audit       AuditConfig   `yaml:"audit" toml:"audit"`
	Auth        AuthConfig    `yaml:"auth" toml:"auth"`
	Logging     LoggingConfig `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// StoreConfig selects the recency window backend
type StoreConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
}

// RedisConfig holds connection parameters for the redis window store
type RedisConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	TestDB   int    `yaml:"test_db" toml:"test_db"`

	DialTimeout  time.Duration `yaml:"-" toml:"-"`
	ReadTimeout  time.Duration `yaml:"-" toml:"-"`
	WriteTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	DialTimeoutRaw  string `yaml:"dial_timeout" toml:"dial_timeout"`
	ReadTimeoutRaw  string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout" toml:"write_timeout"`
}

// Addr returns the host:port dial address.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SQLiteConfig holds the database path for the sqlite window store
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// DedupeConfig holds recency window and background writer settings
type DedupeConfig struct {
	KeyPrefix  string `yaml:"key_prefix" toml:"key_prefix"`
	WindowSize int    `yaml:"window_size" toml:"window_size"`
	Atomic     bool   `yaml:"atomic" toml:"atomic"`
	Writers    int    `yaml:"writers" toml:"writers"`
	QueueSize  int    `yaml:"queue_size" toml:"queue_size"`

	WriteTimeout    time.Duration `yaml:"-" toml:"-"`
	WriteTimeoutRaw string        `yaml:"write_timeout" toml:"write_timeout"`
}

// AuditConfig holds settings for the rotated submission audit log
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// IsTest reports whether the test environment is selected.
func (c *Config) IsTest() bool {
	return c.Environment == EnvironmentTest
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if env := os.Getenv(envVarEnvironment); env != "" {
		cfg.Environment = env
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, suitable for
// local development against a redis on localhost.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "0.0.0.0:8005"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendRedis
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.TestDB == 0 {
		c.Redis.TestDB = 15
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	if c.SQLite.Path == "" {
		c.SQLite.Path = filepath.Join("data", "windows.db")
	}

	if c.Dedupe.KeyPrefix == "" {
		c.Dedupe.KeyPrefix = "su:"
	}
	if c.Dedupe.WindowSize == 0 {
		c.Dedupe.WindowSize = 100
	}
	if c.Dedupe.Writers == 0 {
		c.Dedupe.Writers = 4
	}
	if c.Dedupe.QueueSize == 0 {
		c.Dedupe.QueueSize = 1024
	}
	if c.Dedupe.WriteTimeout == 0 {
		c.Dedupe.WriteTimeout = 2 * time.Second
	}

	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join("logs", "submissions.log")
	}
	if c.Audit.MaxSizeMB == 0 {
		c.Audit.MaxSizeMB = 50
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			return fmt.Errorf("redis.port %d is out of range", c.Redis.Port)
		}
		if c.Redis.DB < 0 || c.Redis.TestDB < 0 {
			return fmt.Errorf("redis database numbers must not be negative")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required when store.backend is sqlite")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of redis, sqlite, memory", c.Store.Backend)
	}

	if c.Dedupe.WindowSize < 1 {
		return fmt.Errorf("dedupe.window_size must be at least 1")
	}
	if c.Dedupe.Writers < 1 {
		return fmt.Errorf("dedupe.writers must be at least 1")
	}
	if c.Dedupe.QueueSize < 1 {
		return fmt.Errorf("dedupe.queue_size must be at least 1")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"redis.dial_timeout", cfg.Redis.DialTimeoutRaw, &cfg.Redis.DialTimeout},
		{"redis.read_timeout", cfg.Redis.ReadTimeoutRaw, &cfg.Redis.ReadTimeout},
		{"redis.write_timeout", cfg.Redis.WriteTimeoutRaw, &cfg.Redis.WriteTimeout},
		{"dedupe.write_timeout", cfg.Dedupe.WriteTimeoutRaw, &cfg.Dedupe.WriteTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}

	return nil
}
