package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth"
	"github.com/kbukum/authgate/auth/authctx"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Auth requires a valid bearer token. The identity is stored in the
// request context (see authctx.FromContext). Every token failure,
// including a missing header, is the same 401 "Invalid token". Storage
// errors from the authenticator keep their own status.
func Auth(a auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c.Request)
		if !ok {
			abortWithError(c, apperrors.InvalidToken())
			return
		}
		id, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if appErr, ok := apperrors.AsAppError(err); ok {
				abortWithError(c, appErr)
				return
			}
			abortWithError(c, apperrors.Internal(err))
			return
		}
		attach(c, id)
		c.Next()
	}
}

func attach(c *gin.Context, id *authctx.Identity) {
	ctx := authctx.WithIdentity(c.Request.Context(), id)
	if id.User != nil {
		ctx = logger.ContextWithUserID(ctx, id.User.ID)
	}
	c.Request = c.Request.WithContext(ctx)
}
