package config

import (
	"fmt"
	"slices"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "text"}
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Local.StatePath == "" {
		return fmt.Errorf("local.state_path must not be empty")
	}
	if c.Local.QueuePath == "" {
		return fmt.Errorf("local.queue_path must not be empty")
	}
	if _, err := c.Local.Location(); err != nil {
		return fmt.Errorf("local.timezone: %w", err)
	}

	if err := c.Remote.validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}

	if c.Sync.FlushInterval <= 0 {
		return fmt.Errorf("sync.flush_interval must be > 0 (got %s)", c.Sync.FlushInterval)
	}
	if c.Sync.SummaryDebounce < 0 {
		return fmt.Errorf("sync.summary_debounce must be >= 0 (got %s)", c.Sync.SummaryDebounce)
	}

	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", validLevels, c.Log.Level)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", validFormats, c.Log.Format)
	}

	return nil
}

func (r *RemoteConfig) validate() error {
	if r.PullLimit <= 0 {
		return fmt.Errorf("pull_limit must be > 0 (got %d)", r.PullLimit)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", r.Timeout)
	}
	if r.MaxConns <= 0 {
		return fmt.Errorf("max_conns must be > 0 (got %d)", r.MaxConns)
	}
	if r.MinConns < 0 || r.MinConns > r.MaxConns {
		return fmt.Errorf("min_conns must be between 0 and max_conns (got %d)", r.MinConns)
	}
	if r.JWTSecret != "" && len(r.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters (got %d)", len(r.JWTSecret))
	}
	return nil
}
