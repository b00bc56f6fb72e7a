package bootstrap

import (
	"github.com/kbukum/authgate/config"
)

// Config is the constraint for application configuration types. Any
// struct that embeds config.ServiceConfig satisfies it via promoted methods.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
