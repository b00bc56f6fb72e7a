// Package password provides password hashing and verification.
//
// Three Hasher implementations are available:
//   - HMACHasher: HMAC-SHA256 keyed by a random 32-byte hex salt (default)
//   - BcryptHasher: bcrypt, salt embedded in the hash
//   - Argon2Hasher: argon2id, salt embedded in the hash
//
// Usage:
//
//	hasher := password.NewHasher(cfg)
//	cred, err := hasher.Hash("correct horse")
//	ok := hasher.Verify("correct horse", cred)
package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// SaltBytes is the size of a generated HMAC salt.
const SaltBytes = 32

// maxArgon2Memory bounds the KiB a stored argon2id hash may request (1 GiB).
const maxArgon2Memory = 1024 * 1024

var (
	// ErrPasswordTooShort is returned when a password is below the minimum length.
	ErrPasswordTooShort = errors.New("password: must contain at least 8 characters")

	// ErrPasswordTooLong is returned by bcrypt for passwords over 72 bytes.
	ErrPasswordTooLong = errors.New("password: maximum length is 72 bytes (bcrypt limit)")

	// ErrMalformedSalt is returned when a supplied salt is not 32 hex-encoded bytes.
	ErrMalformedSalt = errors.New("password: malformed salt")
)

// Credential is a stored password hash. Salt is empty for algorithms that
// embed it in Hash.
type Credential struct {
	Algorithm Algorithm
	Salt      string
	Hash      string
}

// Hasher defines the interface for password hashing and verification.
type Hasher interface {
	// Algorithm returns the algorithm new credentials are created with.
	Algorithm() Algorithm

	// Hash returns a credential for the password with a fresh salt.
	Hash(password string) (Credential, error)

	// Verify reports whether password matches cred. Malformed credentials
	// never match.
	Verify(password string, cred Credential) bool
}

func checkLength(password string, min int) error {
	if utf8.RuneCountInString(password) < min {
		return ErrPasswordTooShort
	}
	return nil
}

// --- HMAC-SHA256 Implementation ---

// HMACHasher implements Hasher with HMAC-SHA256(key=salt, msg=password).
// The key is the hex salt string itself.
type HMACHasher struct {
	minLength int
}

// HMACOption configures the HMAC hasher.
type HMACOption func(*HMACHasher)

// WithMinLength sets the minimum password length (default: 8).
func WithMinLength(n int) HMACOption {
	return func(h *HMACHasher) {
		if n > 0 {
			h.minLength = n
		}
	}
}

// NewHMACHasher creates an HMAC-SHA256 password hasher.
func NewHMACHasher(opts ...HMACOption) *HMACHasher {
	h := &HMACHasher{minLength: 8}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HMACHasher) Algorithm() Algorithm { return AlgorithmHMACSHA256 }

func (h *HMACHasher) Hash(password string) (Credential, error) {
	salt, err := generateRandomBytes(SaltBytes)
	if err != nil {
		return Credential{}, fmt.Errorf("password: generate salt: %w", err)
	}
	return h.HashWithSalt(password, hex.EncodeToString(salt))
}

// HashWithSalt hashes password with a caller-supplied hex salt. The result
// is deterministic in (salt, password).
func (h *HMACHasher) HashWithSalt(password, salt string) (Credential, error) {
	if err := checkLength(password, h.minLength); err != nil {
		return Credential{}, err
	}
	if !validHex(salt, SaltBytes) {
		return Credential{}, ErrMalformedSalt
	}
	return Credential{
		Algorithm: AlgorithmHMACSHA256,
		Salt:      salt,
		Hash:      hmacHex([]byte(salt), password),
	}, nil
}

func (h *HMACHasher) Verify(password string, cred Credential) bool {
	if !validHex(cred.Salt, SaltBytes) || !validHex(cred.Hash, sha256.Size) {
		return false
	}
	expected, _ := hex.DecodeString(cred.Hash)
	mac := hmac.New(sha256.New, []byte(cred.Salt))
	mac.Write([]byte(password))
	return hmac.Equal(mac.Sum(nil), expected)
}

func hmacHex(key []byte, msg string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func validHex(s string, size int) bool {
	if len(s) != size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// --- Bcrypt Implementation ---

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost      int
	minLength int
}

// BcryptOption configures the bcrypt hasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost parameter (default: 12, range: 4-31).
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithBcryptMinLength sets the minimum password length (default: 8).
func WithBcryptMinLength(n int) BcryptOption {
	return func(h *BcryptHasher) {
		if n > 0 {
			h.minLength = n
		}
	}
}

// NewBcryptHasher creates a bcrypt-based password hasher.
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: 12, minLength: 8}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *BcryptHasher) Algorithm() Algorithm { return AlgorithmBcrypt }

func (h *BcryptHasher) Hash(password string) (Credential, error) {
	if err := checkLength(password, h.minLength); err != nil {
		return Credential{}, err
	}
	if len(password) > 72 {
		return Credential{}, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return Credential{}, fmt.Errorf("password: hash: %w", err)
	}
	return Credential{Algorithm: AlgorithmBcrypt, Hash: string(hash)}, nil
}

func (h *BcryptHasher) Verify(password string, cred Credential) bool {
	return bcrypt.CompareHashAndPassword([]byte(cred.Hash), []byte(password)) == nil
}

// --- Argon2id Implementation ---

// Argon2Hasher implements Hasher using argon2id.
type Argon2Hasher struct {
	time      uint32
	memory    uint32
	threads   uint8
	keyLen    uint32
	saltLen   int
	minLength int
}

// Argon2Option configures the argon2id hasher.
type Argon2Option func(*Argon2Hasher)

// WithArgon2Time sets the number of iterations (default: 1).
func WithArgon2Time(t uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.time = t }
}

// WithArgon2Memory sets the memory usage in KiB (default: 64*1024 = 64MB).
func WithArgon2Memory(m uint32) Argon2Option {
	return func(h *Argon2Hasher) { h.memory = m }
}

// WithArgon2Threads sets the parallelism (default: 4).
func WithArgon2Threads(t uint8) Argon2Option {
	return func(h *Argon2Hasher) { h.threads = t }
}

// WithArgon2MinLength sets the minimum password length (default: 8).
func WithArgon2MinLength(n int) Argon2Option {
	return func(h *Argon2Hasher) {
		if n > 0 {
			h.minLength = n
		}
	}
}

// NewArgon2Hasher creates an argon2id-based password hasher.
// Defaults: time=1, memory=64MB, threads=4.
func NewArgon2Hasher(opts ...Argon2Option) *Argon2Hasher {
	h := &Argon2Hasher{
		time:      1,
		memory:    64 * 1024,
		threads:   4,
		keyLen:    32,
		saltLen:   16,
		minLength: 8,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Argon2Hasher) Algorithm() Algorithm { return AlgorithmArgon2id }

func (h *Argon2Hasher) Hash(password string) (Credential, error) {
	if err := checkLength(password, h.minLength); err != nil {
		return Credential{}, err
	}

	salt, err := generateRandomBytes(h.saltLen)
	if err != nil {
		return Credential{}, fmt.Errorf("password: generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	// $argon2id$v=19$m=MEMORY,t=TIME,p=THREADS$SALT$HASH
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return Credential{Algorithm: AlgorithmArgon2id, Hash: encoded}, nil
}

func (h *Argon2Hasher) Verify(password string, cred Credential) bool {
	parts := strings.Split(cred.Hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	if iterations == 0 || threads == 0 || memory > maxArgon2Memory {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(hash, expected) == 1
}
