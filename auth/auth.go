package auth

import (
	"context"

	"github.com/kbukum/authgate/auth/authctx"
	"github.com/kbukum/authgate/users"
)

// Authenticator resolves a bearer token to an identity. Middleware
// depends on this interface rather than on Service.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*authctx.Identity, error)
}

// UserDirectory is the part of the user directory the service needs.
// *users.Directory implements it.
type UserDirectory interface {
	Create(ctx context.Context, in users.NewUser) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
	GetByID(ctx context.Context, id string) (*users.User, error)
}

var _ UserDirectory = (*users.Directory)(nil)
