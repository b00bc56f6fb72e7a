package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authgate/auth"
	"github.com/kbukum/authgate/auth/authctx"
	"github.com/kbukum/authgate/auth/token"
	apperrors "github.com/kbukum/authgate/errors"
	"github.com/kbukum/authgate/logger"
	"github.com/kbukum/authgate/pow"
	"github.com/kbukum/authgate/ratelimit"
	"github.com/kbukum/authgate/server/middleware"
	"github.com/kbukum/authgate/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/test", handlers...)
	return r
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	return body.Error.Code
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit_FixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.New("test", ratelimit.Rule{Max: 3, Window: "60s"}, ratelimit.WithClock(func() time.Time { return now }))
	r := newEngine(middleware.RateLimit(l, middleware.WithRateLimitLogger(logger.NewNop())))

	do := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", http.NoBody)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(rr, req)
		return rr
	}

	for i := 1; i <= 3; i++ {
		rr := do()
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
		if got := rr.Header().Get(middleware.HeaderRateLimitRemaining); got != strconv.Itoa(3-i) {
			t.Errorf("request %d: expected remaining %d, got %s", i, 3-i, got)
		}
		if got := rr.Header().Get(middleware.HeaderRateLimitLimit); got != "3" {
			t.Errorf("expected limit 3, got %s", got)
		}
	}

	rr := do()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != apperrors.ErrCodeRateLimited {
		t.Errorf("expected RATE_LIMITED, got %s", code)
	}
	if got := rr.Header().Get(middleware.HeaderRetryAfter); got != "60" {
		t.Errorf("expected Retry-After 60, got %q", got)
	}
	if got := rr.Header().Get(middleware.HeaderRateLimitReset); got != strconv.FormatInt(now.Add(time.Minute).Unix(), 10) {
		t.Errorf("unexpected reset header %q", got)
	}

	now = now.Add(time.Minute)
	if rr := do(); rr.Code != http.StatusOK {
		t.Errorf("expected 200 after the window reset, got %d", rr.Code)
	}
}

func TestRateLimit_SkipAndKeyFunc(t *testing.T) {
	l := ratelimit.New("test", ratelimit.Rule{Max: 1, Window: "60s"})
	r := newEngine(middleware.RateLimit(l,
		middleware.WithSkip(func(c *gin.Context) bool { return c.GetHeader("X-Skip") != "" }),
		middleware.WithKeyFunc(func(c *gin.Context) string { return c.GetHeader("X-Key") }),
	))

	do := func(key string, skip bool) int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", http.NoBody)
		if key != "" {
			req.Header.Set("X-Key", key)
		}
		if skip {
			req.Header.Set("X-Skip", "1")
		}
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	if do("a", false) != http.StatusOK || do("b", false) != http.StatusOK {
		t.Fatal("distinct keys must have independent windows")
	}
	if do("a", false) != http.StatusTooManyRequests {
		t.Error("second request for key a should be limited")
	}
	if do("a", true) != http.StatusOK {
		t.Error("skipped requests must bypass the limiter")
	}
	// An empty key falls back to the shared global key.
	if do("", false) != http.StatusOK || do("", false) != http.StatusTooManyRequests {
		t.Error("empty keys should share one window")
	}
}

// ---------------------------------------------------------------------------
// ProofOfWork
// ---------------------------------------------------------------------------

func TestProofOfWork(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	gate := pow.NewGate(pow.Config{Enabled: true, Difficulty: 1, Window: "15s"}, pow.WithClock(func() time.Time { return now }))

	reached := false
	r := newEngine(middleware.ProofOfWork(gate, nil), func(*gin.Context) {
		reached = true
	})

	valid := pow.NewChallenge("device-1", now, 1)
	stale := pow.NewChallenge("device-1", now.Add(-time.Minute), 1)
	tampered := valid
	tampered.Nonce = valid.Nonce + "0"

	tests := []struct {
		name   string
		ch     *pow.Challenge
		status int
		code   apperrors.ErrorCode
	}{
		{"valid", &valid, http.StatusOK, ""},
		{"missing headers", nil, http.StatusBadRequest, apperrors.ErrCodeMissingChallengeFields},
		{"stale timestamp", &stale, http.StatusBadRequest, apperrors.ErrCodeInvalidTimestamp},
		{"tampered nonce", &tampered, http.StatusForbidden, apperrors.ErrCodeInvalidProofOfWork},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reached = false
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			if tc.ch != nil {
				tc.ch.Apply(req.Header)
			}
			r.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if reached != (tc.code == "") {
				t.Errorf("handler reached=%v", reached)
			}
			if tc.code != "" {
				if code := errorCode(t, rr); code != tc.code {
					t.Errorf("expected %s, got %s", tc.code, code)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// fakeAuthenticator accepts "good", reports a store outage for "outage",
// fails with a plain error for "broken" and rejects everything else.
type fakeAuthenticator struct{}

var _ auth.Authenticator = fakeAuthenticator{}

func (fakeAuthenticator) Authenticate(_ context.Context, bearer string) (*authctx.Identity, error) {
	switch bearer {
	case "good":
		return &authctx.Identity{
			User:   &users.User{ID: "u-1"},
			Claims: token.Claims{Subject: "u-1"},
			Token:  bearer,
		}, nil
	case "outage":
		return nil, apperrors.StorageFailure("find access token", errors.New("disk I/O error"))
	case "broken":
		return nil, errors.New("unexpected")
	default:
		return nil, apperrors.InvalidToken()
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, ok := middleware.BearerToken(req)
		if got != tc.want || ok != tc.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAuth(t *testing.T) {
	var userID string
	r := newEngine(middleware.Auth(fakeAuthenticator{}), func(c *gin.Context) {
		userID = authctx.UserID(c.Request.Context())
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"store outage", "Bearer outage", http.StatusServiceUnavailable},
		{"unexpected error", "Bearer broken", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			userID = ""
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if tc.status == http.StatusOK {
				if userID != "u-1" {
					t.Errorf("expected identity in context, got %q", userID)
				}
				return
			}
			if userID != "" {
				t.Error("no identity may be attached on failure")
			}
			if tc.status != http.StatusUnauthorized {
				return
			}
			var body apperrors.ErrorResponse
			_ = json.Unmarshal(rr.Body.Bytes(), &body)
			if body.Error.Message != "Invalid token" {
				t.Errorf("expected undifferentiated message, got %q", body.Error.Message)
			}
		})
	}
}
