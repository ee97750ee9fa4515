package config

import (
	"errors"
	"fmt"
	"net"
)

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the structural validity of a Config. All problems are
// reported at once, joined into a single error.
func Validate(cfg *Config) error {
	var errs []error

	if !logLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("config: unknown log level %q (supported: debug, info, warn, error)", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: unknown log format %q (supported: text, json)", cfg.Log.Format))
	}

	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("config: database.path is required"))
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid gateway bind address %q", cfg.Gateway.Bind))
	}
	if cfg.Gateway.ReadTimeout <= 0 {
		errs = append(errs, errors.New("config: gateway.read_timeout must be positive"))
	}
	if cfg.Gateway.WriteTimeout <= 0 {
		errs = append(errs, errors.New("config: gateway.write_timeout must be positive"))
	}

	if cfg.Daemon.RequestTimeout < 0 {
		errs = append(errs, errors.New("config: daemon.request_timeout must not be negative"))
	}

	return errors.Join(errs...)
}
