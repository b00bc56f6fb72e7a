// Package tokenstore persists hashes of issued access and refresh tokens
// and answers whether a presented token is still active.
//
// Raw token values are never stored: every operation hashes the token
// with HMAC-SHA256 under the token secret first. Two backends exist, GORM
// (SQLite tables access_tokens and refresh_tokens) and Redis (one key per
// token with a native TTL).
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/authgate/auth/password"
)

// Namespace separates access tokens from refresh tokens.
type Namespace string

const (
	Access  Namespace = "access"
	Refresh Namespace = "refresh"
)

// ErrUnknownNamespace is returned for a namespace other than Access or Refresh.
var ErrUnknownNamespace = errors.New("tokenstore: unknown namespace")

// Validate checks ns is one of the two namespaces.
func (ns Namespace) Validate() error {
	switch ns {
	case Access, Refresh:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, string(ns))
	}
}

// Meta is request metadata recorded with a token.
type Meta struct {
	UserAgent string
	IP        string
}

// Record is a stored token.
type Record struct {
	ID        string     `json:"id"`
	TokenHash string     `json:"tokenHash"`
	SubjectID string     `json:"subjectId"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	UserAgent string     `json:"userAgent,omitempty"`
	IP        string     `json:"ip,omitempty"`
}

// Active reports whether the record is unrevoked and unexpired at now.
func (r *Record) Active(now time.Time) bool {
	return r != nil && r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// Store persists and checks token hashes.
type Store interface {
	// Persist stores the hash of token. Write failures are StorageFailure errors.
	Persist(ctx context.Context, ns Namespace, token, subjectID string, expiresAt time.Time, meta Meta) error

	// IsActive reports whether token has an unrevoked, unexpired record.
	IsActive(ctx context.Context, ns Namespace, token string) (bool, error)

	// Revoke marks the token revoked and reports whether this call did so.
	// Unknown or already revoked tokens are a no-op that reports false.
	Revoke(ctx context.Context, ns Namespace, token string) (bool, error)

	// FindActive returns the active record for token, or nil.
	FindActive(ctx context.Context, ns Namespace, token string) (*Record, error)

	// Purge deletes records that expired before the given time and
	// returns how many were removed.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Option configures a store.
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

// hasher keys token hashes with the token secret.
type hasher struct {
	secret string
}

func (h hasher) hash(token string) string {
	return password.HashToken(h.secret, token)
}
