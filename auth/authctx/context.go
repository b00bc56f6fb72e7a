// Package authctx carries the authenticated identity through a request
// context.
//
// Usage:
//
//	// middleware
//	ctx = authctx.WithIdentity(ctx, id)
//
//	// handlers
//	id, ok := authctx.FromContext(ctx)
//	id := authctx.MustFromContext(ctx) // panics if missing
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/authgate/auth/token"
	"github.com/kbukum/authgate/users"
)

// Identity is the result of a successful bearer check.
type Identity struct {
	User   *users.User
	Claims token.Claims
	// Token is the raw bearer value, kept so logout can revoke it.
	Token string
}

type contextKey struct{}

var identityKey = contextKey{}

// ErrNoIdentity is returned when the context carries no identity.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// MustFromContext returns the identity stored in ctx and panics when there
// is none. Use it behind the Auth middleware only.
func MustFromContext(ctx context.Context) *Identity {
	id, ok := FromContext(ctx)
	if !ok {
		panic("authctx: identity not found in context")
	}
	return id
}

// Get returns the identity or ErrNoIdentity.
func Get(ctx context.Context) (*Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	return id, nil
}

// UserID returns the authenticated user's ID, or "".
func UserID(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok || id.User == nil {
		return ""
	}
	return id.User.ID
}
