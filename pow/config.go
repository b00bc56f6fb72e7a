package pow

import (
	"fmt"
	"time"
)

// Config configures the proof-of-work gate.
type Config struct {
	// Enabled turns the gate on for signup and login (default: true in config.yml).
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Difficulty is the number of leading zero hex digits (default: 3).
	Difficulty int `yaml:"difficulty" mapstructure:"difficulty"`

	// Window is the accepted clock skew of X-Timestamp (default: "15s").
	Window string `yaml:"window" mapstructure:"window"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Difficulty == 0 {
		c.Difficulty = 3
	}
	if c.Window == "" {
		c.Window = "15s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Difficulty > 64 {
		return fmt.Errorf("pow.difficulty must be at most 64 (got: %d)", c.Difficulty)
	}
	if _, err := time.ParseDuration(c.Window); err != nil {
		return fmt.Errorf("invalid pow.window %q: %w", c.Window, err)
	}
	return nil
}

// WindowDuration returns the parsed window.
func (c *Config) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.Window)
	return d
}
