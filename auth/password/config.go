package password

import "fmt"

// Algorithm represents supported password hashing algorithms.
type Algorithm string

const (
	// AlgorithmHMACSHA256 keys HMAC-SHA256 with a random 32-byte salt.
	AlgorithmHMACSHA256 Algorithm = "hmac-sha256"

	// AlgorithmBcrypt is bcrypt hashing. The salt is embedded in the hash.
	AlgorithmBcrypt Algorithm = "bcrypt"

	// AlgorithmArgon2id is argon2id hashing. The salt is embedded in the hash.
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Config configures password hashing behavior.
// Loadable from YAML/env via mapstructure tags.
type Config struct {
	// Algorithm selects the algorithm for new hashes (default: "hmac-sha256").
	Algorithm Algorithm `mapstructure:"algorithm"`

	// BcryptCost is the bcrypt cost parameter (default: 12, range: 4-31).
	BcryptCost int `mapstructure:"bcrypt_cost"`

	Argon2Time    uint32 `mapstructure:"argon2_time"`
	Argon2Memory  uint32 `mapstructure:"argon2_memory"`
	Argon2Threads uint8  `mapstructure:"argon2_threads"`

	// MinLength is the minimum password length in characters (default: 8).
	MinLength int `mapstructure:"min_length"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmHMACSHA256
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.Argon2Time == 0 {
		c.Argon2Time = 1
	}
	if c.Argon2Memory == 0 {
		c.Argon2Memory = 64 * 1024
	}
	if c.Argon2Threads == 0 {
		c.Argon2Threads = 4
	}
	if c.MinLength == 0 {
		c.MinLength = 8
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Algorithm {
	case AlgorithmHMACSHA256, AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return fmt.Errorf("unsupported algorithm: %s (use hmac-sha256, bcrypt or argon2id)", c.Algorithm)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31 (got: %d)", c.BcryptCost)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min_length must be >= 1 (got: %d)", c.MinLength)
	}
	return nil
}

// NewHasher creates a Hasher from configuration. New passwords are hashed
// with cfg.Algorithm; credentials stored under any supported algorithm
// still verify.
func NewHasher(cfg Config) Hasher {
	cfg.ApplyDefaults()

	hashers := map[Algorithm]Hasher{
		AlgorithmHMACSHA256: NewHMACHasher(WithMinLength(cfg.MinLength)),
		AlgorithmBcrypt:     NewBcryptHasher(WithCost(cfg.BcryptCost), WithBcryptMinLength(cfg.MinLength)),
		AlgorithmArgon2id: NewArgon2Hasher(
			WithArgon2Time(cfg.Argon2Time),
			WithArgon2Memory(cfg.Argon2Memory),
			WithArgon2Threads(cfg.Argon2Threads),
			WithArgon2MinLength(cfg.MinLength),
		),
	}
	primary, ok := hashers[cfg.Algorithm]
	if !ok {
		primary = hashers[AlgorithmHMACSHA256]
	}
	return &dispatcher{primary: primary, all: hashers}
}

// dispatcher hashes with the configured algorithm and verifies with the
// algorithm recorded on the credential.
type dispatcher struct {
	primary Hasher
	all     map[Algorithm]Hasher
}

func (d *dispatcher) Algorithm() Algorithm { return d.primary.Algorithm() }

func (d *dispatcher) Hash(password string) (Credential, error) {
	return d.primary.Hash(password)
}

func (d *dispatcher) Verify(password string, cred Credential) bool {
	h, ok := d.all[cred.Algorithm]
	if !ok {
		return false
	}
	return h.Verify(password, cred)
}
