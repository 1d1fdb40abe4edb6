package config

import (
	"time"

	"github.com/vietddude/cloudvault/internal/infra/ledger"
	"github.com/vietddude/cloudvault/internal/infra/remote"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig    `yaml:"server"`
	Storage remote.S3Config `yaml:"storage"`
	Redis   ledger.Config   `yaml:"redis"`
	Retry   RetryConfig     `yaml:"retry"`
	Logging LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the health/metrics listener settings. A zero port
// disables the listener.
type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// RetryConfig tunes the client's retry loops.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	DefaultDelay time.Duration `yaml:"default_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
