package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeMissingChallengeFields indicates one of the proof-of-work headers is absent.
	ErrCodeMissingChallengeFields ErrorCode = "MISSING_CHALLENGE_FIELDS"
	// ErrCodeInvalidTimestamp indicates the challenge timestamp is unparseable or stale.
	ErrCodeInvalidTimestamp ErrorCode = "INVALID_TIMESTAMP"
)

// Authentication/Authorization errors
const (
	// ErrCodeUnauthorized indicates missing, invalid, expired or revoked credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidRefreshToken indicates the refresh token is unknown, expired or revoked.
	ErrCodeInvalidRefreshToken ErrorCode = "INVALID_REFRESH_TOKEN"
	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeInvalidProofOfWork indicates the proof-of-work solution was rejected.
	ErrCodeInvalidProofOfWork ErrorCode = "INVALID_PROOF_OF_WORK"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Internal errors
const (
	// ErrCodeStorageFailure indicates a read or write against a backing store failed.
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// retryableCodes marks codes a caller may retry. Nothing in this module
// retries on its own; the flag is a hint in the response body.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeRateLimited:    true,
	ErrCodeStorageFailure: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
