package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth/authctx"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/server"
	"github.com/kbukum/authgate/users"
)

type meResponse struct {
	User *users.User `json:"user"`
}

// Me handles GET /api/users/me behind the Auth middleware.
func Me(c *gin.Context) {
	id, ok := authctx.FromContext(c.Request.Context())
	if !ok || id.User == nil {
		server.RespondWithError(c, apperrors.InvalidToken())
		return
	}
	server.RespondOK(c, meResponse{User: id.User})
}
