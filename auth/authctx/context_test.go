package authctx

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/authgate/auth/token"
	"github.com/kbukum/authgate/users"
)

func TestWithIdentity_RoundTrip(t *testing.T) {
	id := &Identity{
		User:   &users.User{ID: "u-1", Email: "a@b.com"},
		Claims: token.Claims{Subject: "u-1"},
		Token:  "abc",
	}
	ctx := WithIdentity(context.Background(), id)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if got != id {
		t.Errorf("expected the stored identity, got %+v", got)
	}
	if UserID(ctx) != "u-1" {
		t.Errorf("expected user id u-1, got %q", UserID(ctx))
	}
	if MustFromContext(ctx) != id {
		t.Error("MustFromContext returned a different identity")
	}
}

func TestFromContext_Missing(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Error("expected no identity")
	}
	if UserID(ctx) != "" {
		t.Error("expected empty user id")
	}
	if _, err := Get(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
	if _, ok := FromContext(WithIdentity(ctx, nil)); ok {
		t.Error("a nil identity must not count as present")
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustFromContext(context.Background())
}
