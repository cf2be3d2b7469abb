// Package config provides 12-factor configuration management for the
// isolate service.
//
// Configuration is loaded from environment variables with sensible
// defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Context: execution context defaults (queue size, timeout, limits)
//   - Snapshot: snapshot storage directory
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - CONTEXT_QUEUE_SIZE, CONTEXT_TIMEOUT, CONTEXT_MAX_CALL_STACK
//   - SNAPSHOT_DIR
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
