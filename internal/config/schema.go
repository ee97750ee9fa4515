// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for perch.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Daemon   DaemonConfig   `yaml:"daemon"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// DatabaseConfig locates the panel's SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Bind string `yaml:"bind"`

	// BearerToken protects the API routes. Health and metrics stay public.
	BearerToken string `yaml:"bearer_token"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DaemonConfig tunes node daemon requests.
type DaemonConfig struct {
	// RequestTimeout overrides the default per-request timeout. Archive
	// operations always use their own longer timeout.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Defaults fills unset fields with their defaults.
func (c *Config) Defaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Database.Path == "" {
		c.Database.Path = "perch.db"
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = "127.0.0.1:8080"
	}
	if c.Gateway.ReadTimeout == 0 {
		c.Gateway.ReadTimeout = 30 * time.Second
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = 16 * time.Minute
	}
	if c.Gateway.ShutdownTimeout == 0 {
		c.Gateway.ShutdownTimeout = 10 * time.Second
	}
}
