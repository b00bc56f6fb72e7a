package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
)

const exposeErrorsKey = "authgate.expose_errors"

// RespondWithError writes the JSON error body for err. Errors that are not
// an *apperrors.AppError become a 500. When the server exposes errors, the
// cause of a 5xx is added to the details under "reason".
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	resp := appErr.ToResponse()

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log := logger.GetGlobalLogger().WithComponent("http").WithContext(c.Request.Context())
		log.Error("Request failed", logger.ErrorFields(c.Request.Method+" "+c.FullPath(), err))

		if c.GetBool(exposeErrorsKey) && appErr.Cause != nil {
			details := make(map[string]interface{}, len(resp.Error.Details)+1)
			for k, v := range resp.Error.Details {
				details[k] = v
			}
			details["reason"] = appErr.Cause.Error()
			resp.Error.Details = details
		}
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, resp)
}

// RespondOK sends a 200 response with data as the body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a 201 response with data as the body.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
