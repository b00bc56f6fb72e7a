package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/authgate/errors"
)

// abortWithError stops the gin chain with the JSON body for err.
func abortWithError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
