package ratelimit

import (
	"fmt"
	"time"
)

// Rule is one limiter's budget.
type Rule struct {
	// Max is the number of requests allowed per window.
	Max int `yaml:"max" mapstructure:"max"`

	// Window is the window length (e.g. "60s").
	Window string `yaml:"window" mapstructure:"window"`
}

func (r *Rule) applyDefaults(defaultMax int, window time.Duration) {
	if r.Max <= 0 {
		r.Max = defaultMax
	}
	if d, err := time.ParseDuration(r.Window); err != nil || d <= 0 {
		r.Window = window.String()
	}
}

// WindowDuration returns the parsed window.
func (r *Rule) WindowDuration() time.Duration {
	d, _ := time.ParseDuration(r.Window)
	return d
}

// Config holds the global and auth-route limiters.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Global applies to every /api route (default: 100 per 60s).
	Global Rule `yaml:"global" mapstructure:"global"`

	// Auth applies to /api/auth routes (default: 10 per 60s).
	Auth Rule `yaml:"auth" mapstructure:"auth"`

	// JanitorInterval is how often ended windows are evicted (default: "1m").
	JanitorInterval string `yaml:"janitor_interval" mapstructure:"janitor_interval"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.Global.applyDefaults(100, time.Minute)
	c.Auth.applyDefaults(10, time.Minute)
	if c.JanitorInterval == "" {
		c.JanitorInterval = "1m"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.JanitorInterval)
	if err != nil {
		return fmt.Errorf("invalid rate_limit.janitor_interval %q: %w", c.JanitorInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("rate_limit.janitor_interval must be positive")
	}
	return nil
}

// JanitorEvery returns the parsed janitor interval.
func (c *Config) JanitorEvery() time.Duration {
	d, _ := time.ParseDuration(c.JanitorInterval)
	return d
}
