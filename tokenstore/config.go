package tokenstore

import (
	"fmt"
	"time"

	"github.com/kbukum/authgate/logger"
)

// Drivers.
const (
	DriverGORM  = "gorm"
	DriverRedis = "redis"
)

// Config selects and tunes the token store backend.
type Config struct {
	// Driver is "gorm" (default) or "redis".
	Driver string `yaml:"driver" mapstructure:"driver"`

	// KeyPrefix prefixes Redis keys (default: "authgate").
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`

	// PurgeInterval is how often expired records are deleted (default: "10m").
	PurgeInterval string `yaml:"purge_interval" mapstructure:"purge_interval"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverGORM
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "authgate"
	}
	if c.PurgeInterval == "" {
		c.PurgeInterval = "10m"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverGORM, DriverRedis:
	default:
		return fmt.Errorf("token_store.driver must be gorm or redis (got: %s)", c.Driver)
	}
	d, err := time.ParseDuration(c.PurgeInterval)
	if err != nil {
		return fmt.Errorf("invalid token_store.purge_interval %q: %w", c.PurgeInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("token_store.purge_interval must be positive")
	}
	return nil
}

// PurgeEvery returns the parsed purge interval.
func (c *Config) PurgeEvery() time.Duration {
	d, _ := time.ParseDuration(c.PurgeInterval)
	return d
}

// New creates the configured backend. Providers are read lazily, so the
// database and redis components may start after the store is built.
func New(cfg Config, secret string, db DBProvider, rdb RedisProvider, log *logger.Logger, opts ...Option) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, fmt.Errorf("tokenstore: token secret is required")
	}

	switch cfg.Driver {
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("tokenstore: redis driver selected but redis is not configured")
		}
		return NewRedisStore(rdb, secret, cfg.KeyPrefix, log, opts...), nil
	default:
		if db == nil {
			return nil, fmt.Errorf("tokenstore: gorm driver selected but database is not configured")
		}
		return NewGormStore(db, secret, log, opts...), nil
	}
}
