package auth

import (
	"fmt"
	"time"

	"github.com/kbukum/authgate/auth/password"
	"github.com/kbukum/authgate/auth/token"
)

// MinProductionSecretBytes is the shortest token secret accepted in production.
const MinProductionSecretBytes = 32

// TokenConfig configures token signing and hashing.
type TokenConfig struct {
	// Secret signs access tokens and keys the stored token hashes.
	// Set it with AUTH_TOKEN_SECRET.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Format is "envelope" (default) or "jwt".
	Format token.Format `yaml:"format" mapstructure:"format"`
}

// Config holds authentication configuration.
type Config struct {
	Token TokenConfig `yaml:"token" mapstructure:"token"`

	// AccessTokenTTL is the access token lifetime (default: 60s).
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`

	// RefreshTokenTTL is the refresh token lifetime (default: 72h).
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" mapstructure:"refresh_token_ttl"`

	// RotateRefreshTokens makes Refresh revoke the presented refresh token
	// and issue a new one.
	RotateRefreshTokens bool `yaml:"rotate_refresh_tokens" mapstructure:"rotate_refresh_tokens"`

	Password password.Config `yaml:"password" mapstructure:"password"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Token.Format == "" {
		c.Token.Format = token.FormatEnvelope
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 60 * time.Second
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 72 * time.Hour
	}
	c.Password.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return fmt.Errorf("auth.token.secret is required")
	}
	switch c.Token.Format {
	case token.FormatEnvelope, token.FormatJWT:
	default:
		return fmt.Errorf("auth.token.format must be envelope or jwt (got: %s)", c.Token.Format)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl must be positive")
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("auth.password: %w", err)
	}
	return nil
}

// ValidateProduction applies the stricter production rules.
func (c *Config) ValidateProduction() error {
	if len(c.Token.Secret) < MinProductionSecretBytes {
		return fmt.Errorf("auth.token.secret must be at least %d bytes in production (got: %d)",
			MinProductionSecretBytes, len(c.Token.Secret))
	}
	return nil
}

// Describe returns a one-liner for the startup summary.
// Example: "envelope access=1m0s refresh=72h0m0s password=hmac-sha256"
func (c *Config) Describe() string {
	line := fmt.Sprintf("%s access=%s refresh=%s password=%s",
		c.Token.Format, c.AccessTokenTTL, c.RefreshTokenTTL, c.Password.Algorithm)
	if c.RotateRefreshTokens {
		line += " rotate"
	}
	return line
}
