package errors

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Validation creates a new AppError for input the caller can correct.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("%s is required", field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// MissingChallengeFields is returned when any proof-of-work header is absent.
func MissingChallengeFields() *AppError {
	return &AppError{
		Code: ErrCodeMissingChallengeFields, Message: "Missing PoW headers",
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidTimestamp is returned when the challenge timestamp cannot be parsed
// or falls outside the freshness window.
func InvalidTimestamp() *AppError {
	return &AppError{
		Code: ErrCodeInvalidTimestamp, Message: "Request timestamp invalid or expired",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized creates a new AppError for unauthorized access.
// Token failures always use the same reason so callers cannot tell
// an expired token from a revoked or forged one.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required"
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken is the single response for every failed bearer check.
func InvalidToken() *AppError {
	return Unauthorized("Invalid token")
}

// InvalidCredentials is returned for unknown emails and wrong passwords alike.
func InvalidCredentials() *AppError {
	return Unauthorized("Invalid credentials")
}

// InvalidRefreshToken is returned when a refresh token is unknown, expired or revoked.
func InvalidRefreshToken() *AppError {
	return &AppError{
		Code: ErrCodeInvalidRefreshToken, Message: "Invalid refresh token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a new AppError for forbidden access.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "You don't have permission to perform this action."
	}
	return &AppError{
		Code: ErrCodeForbidden, Message: reason,
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidProofOfWork is returned when a proof-of-work solution does not verify.
func InvalidProofOfWork() *AppError {
	return &AppError{
		Code: ErrCodeInvalidProofOfWork, Message: "Invalid PoW solution",
		HTTPStatus: http.StatusForbidden,
	}
}

// RateLimited creates a new AppError for too many requests. The retry hint
// is rounded up to whole seconds and is never below one second.
func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"retry_after_seconds": RetryAfterSeconds(retryAfter)},
	}
}

// RetryAfterSeconds converts a remaining window into the Retry-After value.
func RetryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// Conflict creates a new AppError for a conflict with the current state of the resource.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict,
	}
}

// StorageFailure wraps a failed store read or write. It is surfaced as
// 503 and is not retried by this module.
func StorageFailure(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorageFailure, Message: "A storage error occurred. Please try again.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
