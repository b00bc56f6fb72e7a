package database

import (
	"fmt"
	"strings"
	"time"
)

// Migration modes.
const (
	MigrateAuto  = "auto"
	MigrateFiles = "files"
	MigrateNone  = "none"
)

// Config holds database connection configuration.
type Config struct {
	// DSN is the SQLite data source, e.g. "authgate.db?_busy_timeout=5000"
	// or ":memory:".
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// Migrate selects how the schema is created on Start: "auto" runs GORM
	// auto-migration, "files" applies the embedded SQL migrations with
	// golang-migrate, "none" leaves the schema alone.
	Migrate string `yaml:"migrate" mapstructure:"migrate"`

	// SlowQueryThreshold is the duration above which queries are logged as slow.
	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ApplyDefaults sets defaults for zero-valued fields. In-memory databases
// are pinned to a single connection, since every new SQLite connection to
// ":memory:" would open a fresh, empty database.
func (c *Config) ApplyDefaults() {
	if c.DSN == "" {
		c.DSN = "authgate.db?_busy_timeout=5000&_foreign_keys=on"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.IsMemory() {
		c.MaxOpenConns, c.MaxIdleConns = 1, 1
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Migrate == "" {
		c.Migrate = MigrateAuto
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// IsMemory reports whether the DSN points at an in-memory database.
func (c *Config) IsMemory() bool {
	return strings.Contains(c.DSN, ":memory:") || strings.Contains(c.DSN, "mode=memory")
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime %q: %w", c.ConnMaxLifetime, err)
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return fmt.Errorf("invalid slow_query_threshold %q: %w", c.SlowQueryThreshold, err)
	}
	switch c.Migrate {
	case MigrateAuto, MigrateFiles, MigrateNone:
	default:
		return fmt.Errorf("database.migrate must be one of [auto, files, none] (got: %s)", c.Migrate)
	}
	return nil
}
