package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Context   ContextConfig
	Snapshot  SnapshotConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port             string        `envconfig:"PORT" default:"8090"`
	Host             string        `envconfig:"HOST" default:"0.0.0.0"`
	PromiseRetention time.Duration `envconfig:"PROMISE_RETENTION" default:"5m"`
}

// ContextConfig holds execution context defaults.
type ContextConfig struct {
	QueueSize     int           `envconfig:"CONTEXT_QUEUE_SIZE" default:"256"`
	Timeout       time.Duration `envconfig:"CONTEXT_TIMEOUT" default:"5s"`
	MaxCallStack  int           `envconfig:"CONTEXT_MAX_CALL_STACK" default:"1024"`
	EnableConsole bool          `envconfig:"CONTEXT_ENABLE_CONSOLE" default:"true"`
}

// SnapshotConfig holds snapshot storage configuration.
type SnapshotConfig struct {
	Dir string `envconfig:"SNAPSHOT_DIR" default:"/tmp/isolate-snapshots"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8090",
			Host:             "0.0.0.0",
			PromiseRetention: 5 * time.Minute,
		},
		Context: ContextConfig{
			QueueSize:     256,
			Timeout:       5 * time.Second,
			MaxCallStack:  1024,
			EnableConsole: true,
		},
		Snapshot: SnapshotConfig{
			Dir: "/tmp/isolate-snapshots",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
