package middleware

import (
	"net/http"

	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/util"
)

const defaultMaxBodySize = 1024 * 1024 // 1MB

// BodySizeLimit returns middleware that restricts the request body to the given
// size string (e.g. "1MB", "512KB"). A declared Content-Length over the
// limit is rejected with 413; otherwise reads past the limit fail.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				writeError(w, tooLarge())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

func tooLarge() *apperrors.AppError {
	return apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
}
