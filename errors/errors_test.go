package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeStorageFailure, "write failed", http.StatusServiceUnavailable)
	if !err.Retryable {
		t.Error("STORAGE_FAILURE should be retryable")
	}
}

func TestAppError_Unauthorized_Default(t *testing.T) {
	err := Unauthorized("")
	if err.Code != ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %s", err.Code)
	}
	if err.Message != "Authentication required" {
		t.Errorf("expected default message, got %q", err.Message)
	}

	if got := Unauthorized("bad token").Message; got != "bad token" {
		t.Errorf("expected custom message, got %q", got)
	}
}

func TestAppError_InvalidToken_Undifferentiated(t *testing.T) {
	a, b := InvalidToken(), InvalidToken()
	if a.Code != ErrCodeUnauthorized || a.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("unexpected invalid token error: %+v", a)
	}
	if a.Message != b.Message {
		t.Error("every invalid token response must carry the same message")
	}
}

func TestAppError_RateLimited_RetryHint(t *testing.T) {
	tests := []struct {
		name  string
		after time.Duration
		want  int
	}{
		{"zero rounds up to one", 0, 1},
		{"sub-second rounds up", 200 * time.Millisecond, 1},
		{"exact seconds", 30 * time.Second, 30},
		{"fractional rounds up", 1500 * time.Millisecond, 2},
		{"negative clamps", -time.Second, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RateLimited(tc.after)
			if err.HTTPStatus != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", err.HTTPStatus)
			}
			if got := err.Details["retry_after_seconds"]; got != tc.want {
				t.Errorf("expected retry_after_seconds=%d, got %v", tc.want, got)
			}
		})
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, http.StatusBadRequest, false},
		{"MissingField", MissingField("refreshToken"), ErrCodeMissingField, http.StatusBadRequest, false},
		{"MissingChallengeFields", MissingChallengeFields(), ErrCodeMissingChallengeFields, http.StatusBadRequest, false},
		{"InvalidTimestamp", InvalidTimestamp(), ErrCodeInvalidTimestamp, http.StatusBadRequest, false},
		{"InvalidCredentials", InvalidCredentials(), ErrCodeUnauthorized, http.StatusUnauthorized, false},
		{"InvalidRefreshToken", InvalidRefreshToken(), ErrCodeInvalidRefreshToken, http.StatusUnauthorized, false},
		{"Forbidden", Forbidden(""), ErrCodeForbidden, http.StatusForbidden, false},
		{"InvalidProofOfWork", InvalidProofOfWork(), ErrCodeInvalidProofOfWork, http.StatusForbidden, false},
		{"RateLimited", RateLimited(time.Second), ErrCodeRateLimited, http.StatusTooManyRequests, true},
		{"NotFound", NotFound("user", "1"), ErrCodeNotFound, http.StatusNotFound, false},
		{"Conflict", Conflict("Email already registered"), ErrCodeConflict, http.StatusConflict, false},
		{"StorageFailure", StorageFailure("persist", nil), ErrCodeStorageFailure, http.StatusServiceUnavailable, true},
		{"Internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := StorageFailure("persist", nil).WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	resp := NotFound("user", "42").ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code NOT_FOUND in response, got %s", resp.Error.Code)
	}
	if resp.Error.Details["resource"] != "user" {
		t.Error("expected resource=user in response details")
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", InvalidRefreshToken())

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInvalidRefreshToken {
		t.Errorf("expected INVALID_REFRESH_TOKEN, got %s", got.Code)
	}
	if !HasCode(wrapped, ErrCodeInvalidRefreshToken) {
		t.Error("expected HasCode to match wrapped code")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := Conflict("taken")
	if Wrap(fmt.Errorf("outer: %w", orig)) != orig {
		t.Error("Wrap should return the AppError found in the chain")
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal || got.Cause != plain {
		t.Errorf("expected internal error wrapping the original, got %+v", got)
	}
}
