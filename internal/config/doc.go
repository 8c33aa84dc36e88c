// Package config handles configuration loading for submission-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion. Missing values receive defaults before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SUBMISSION_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/submission-gateway/config.yaml
//  3. ~/.config/submission-gateway/config.yaml
//
// Files with a .toml extension are decoded as TOML.
//
// # Environment Variable Expansion
//
//	redis:
//	  password: "${REDIS_PASSWORD}"
//
// # Test Environment
//
// Setting SUBMISSION_ENV=test (or environment: test in the file) makes the
// redis window store select redis.test_db (default 15) so test runs never
// touch production windows.
//
// # Configuration Sections
//
//	store:
//	  backend: redis        # redis, sqlite, memory
//
//	redis:
//	  host: localhost
//	  port: 6379
//	  read_timeout: "3s"
//
//	dedupe:
//	  key_prefix: "su:"
//	  window_size: 100
//	  atomic: false         # opt-in atomic check-and-push
//
//	audit:
//	  enabled: false
//	  path: logs/submissions.log
//	  max_size_mb: 50
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
