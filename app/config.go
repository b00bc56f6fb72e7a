package app

import (
	"fmt"

	"github.com/kbukum/authgate/auth"
	"github.com/kbukum/authgate/config"
	"github.com/kbukum/authgate/database"
	"github.com/kbukum/authgate/observability"
	"github.com/kbukum/authgate/pow"
	"github.com/kbukum/authgate/ratelimit"
	"github.com/kbukum/authgate/redis"
	"github.com/kbukum/authgate/server"
	"github.com/kbukum/authgate/tokenstore"
)

// Config is the full authgate configuration, loaded by config.LoadConfig
// from authgate.yml and AUTHGATE_* style environment variables.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	TokenStore    tokenstore.Config    `yaml:"token_store" mapstructure:"token_store"`
	PoW           pow.Config           `yaml:"pow" mapstructure:"pow"`
	RateLimit     ratelimit.Config     `yaml:"rate_limit" mapstructure:"rate_limit"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section. Outside production the HTTP layer
// reports the cause of 5xx errors.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.TokenStore.ApplyDefaults()
	c.PoW.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Observability.ApplyDefaults()

	if c.Environment == "development" {
		c.Server.ExposeErrors = true
	}
}

// Validate checks every section and the cross-section rules.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"auth", c.Auth.Validate},
		{"token_store", c.TokenStore.Validate},
		{"pow", c.PoW.Validate},
		{"rate_limit", c.RateLimit.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if c.TokenStore.Driver == tokenstore.DriverRedis && !c.Redis.Enabled {
		return fmt.Errorf("token_store.driver is redis but redis.enabled is false")
	}

	if c.IsProduction() {
		if err := c.Auth.ValidateProduction(); err != nil {
			return err
		}
		if c.Server.ExposeErrors {
			return fmt.Errorf("server.expose_errors must be off in production")
		}
	}
	return nil
}
