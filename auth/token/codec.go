// Package token mints and verifies signed access tokens.
//
// Two Codec implementations produce the same HS256 wire format
// (base64url header . base64url payload . base64url signature):
//   - Envelope: a minimal HMAC-SHA256 codec
//   - JWT: backed by github.com/golang-jwt/jwt/v5
//
// Both report failures with the same sentinel errors.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Format selects a Codec implementation.
type Format string

const (
	FormatEnvelope Format = "envelope"
	FormatJWT      Format = "jwt"
)

var (
	ErrMalformedToken   = errors.New("token: malformed")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrTokenExpired     = errors.New("token: expired")
	ErrEmptySecret      = errors.New("token: secret is required")
)

// Claims is the token payload. ExpiresAt is zero for tokens minted without
// a TTL. Times are unix seconds.
type Claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp,omitempty"`
	ID        string `json:"jti,omitempty"`
}

// Expiry returns ExpiresAt as a time, or the zero time when unset.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// Codec mints and verifies signed tokens.
type Codec interface {
	// Mint signs claims. IssuedAt is set to now and ExpiresAt to
	// now+ttl when ttl > 0. A random ID is assigned when empty.
	Mint(claims Claims, ttl time.Duration) (string, Claims, error)

	// Verify returns the claims of a valid token, or one of
	// ErrMalformedToken, ErrInvalidSignature, ErrTokenExpired.
	Verify(token string) (Claims, error)
}

// Option configures a codec.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the codec for format.
func New(format Format, secret string, opts ...Option) (Codec, error) {
	switch format {
	case FormatEnvelope, "":
		return NewEnvelope(secret, opts...)
	case FormatJWT:
		return NewJWT(secret, opts...)
	default:
		return nil, fmt.Errorf("token: unsupported format %q", format)
	}
}

func stamp(claims Claims, now time.Time, ttl time.Duration) Claims {
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = 0
	if ttl > 0 {
		claims.ExpiresAt = claims.IssuedAt + int64(ttl/time.Second)
		if ttl%time.Second != 0 {
			claims.ExpiresAt++
		}
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	return claims
}
