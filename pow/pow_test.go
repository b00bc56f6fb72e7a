package pow

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/authgate/errors"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestGate(difficulty int) *Gate {
	return NewGate(Config{Difficulty: difficulty}, WithClock(func() time.Time { return testNow }))
}

func TestGate_AcceptsSolvedChallenge(t *testing.T) {
	g := newTestGate(3)
	ch := NewChallenge("device-1", testNow, 3)

	proof, err := g.Verify(ch)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !strings.HasPrefix(proof.Hash, "000") || proof.Difficulty != 3 || proof.Nonce != ch.Nonce {
		t.Errorf("unexpected proof %+v", proof)
	}
}

func TestGate_MissingFields(t *testing.T) {
	g := newTestGate(1)
	full := NewChallenge("fp", testNow, 1)

	tests := []struct {
		name   string
		mutate func(c *Challenge)
	}{
		{"timestamp", func(c *Challenge) { c.Timestamp = "" }},
		{"fingerprint", func(c *Challenge) { c.Fingerprint = "" }},
		{"nonce", func(c *Challenge) { c.Nonce = "" }},
		{"solution", func(c *Challenge) { c.Solution = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ch := full
			tc.mutate(&ch)
			if _, err := g.Verify(ch); !errors.Is(err, ErrMissingFields) {
				t.Errorf("expected ErrMissingFields, got %v", err)
			}
		})
	}
}

func TestGate_Timestamp(t *testing.T) {
	g := newTestGate(1)

	tests := []struct {
		name    string
		ts      string
		wantErr bool
	}{
		{"rfc3339", testNow.Format(time.RFC3339), false},
		{"rfc3339 fractional", testNow.Add(-500 * time.Millisecond).Format(time.RFC3339Nano), false},
		{"unix millis", strconv.FormatInt(testNow.UnixMilli(), 10), false},
		{"edge of window", testNow.Add(-15 * time.Second).Format(time.RFC3339), false},
		{"too old", testNow.Add(-16 * time.Second).Format(time.RFC3339), true},
		{"too far ahead", testNow.Add(16 * time.Second).Format(time.RFC3339), true},
		{"garbage", "yesterday", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nonce, solution := Solve("fp", tc.ts, 1)
			_, err := g.Verify(Challenge{Timestamp: tc.ts, Fingerprint: "fp", Nonce: nonce, Solution: solution})
			if tc.wantErr && !errors.Is(err, ErrInvalidTimestamp) {
				t.Errorf("expected ErrInvalidTimestamp, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected success, got %v", err)
			}
		})
	}
}

func TestGate_MatchingCandidateWithoutZerosRejected(t *testing.T) {
	g := newTestGate(3)
	ts := testNow.Format(time.RFC3339)

	// Find a nonce whose hash does not start with "000" and submit it honestly.
	var nonce, hash string
	for i := 0; ; i++ {
		nonce = strconv.Itoa(i)
		hash = Hash("fp", ts, nonce)
		if !strings.HasPrefix(hash, "000") {
			break
		}
	}
	_, err := g.Verify(Challenge{Timestamp: ts, Fingerprint: "fp", Nonce: nonce, Solution: hash})
	if !errors.Is(err, ErrInvalidSolution) {
		t.Errorf("expected ErrInvalidSolution, got %v", err)
	}
}

func TestGate_TamperedNonceRejected(t *testing.T) {
	g := newTestGate(3)
	ch := NewChallenge("fp", testNow, 3)
	ch.Nonce += "1"

	if _, err := g.Verify(ch); !errors.Is(err, ErrInvalidSolution) {
		t.Errorf("expected ErrInvalidSolution, got %v", err)
	}
}

func TestNewGate_Clamps(t *testing.T) {
	g := NewGate(Config{Difficulty: -2, Window: "10ms"})
	if g.Difficulty() != 1 {
		t.Errorf("expected difficulty clamped to 1, got %d", g.Difficulty())
	}
	if g.Window() != time.Second {
		t.Errorf("expected window clamped to 1s, got %v", g.Window())
	}

	d := NewGate(Config{})
	if d.Difficulty() != 3 || d.Window() != 15*time.Second {
		t.Errorf("unexpected defaults: difficulty=%d window=%v", d.Difficulty(), d.Window())
	}
}

func TestChallenge_Headers(t *testing.T) {
	ch := NewChallenge("fp", testNow, 1)
	h := http.Header{}
	ch.Apply(h)
	if got := ChallengeFromHeaders(h); got != ch {
		t.Errorf("expected %+v, got %+v", ch, got)
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		code   apperrors.ErrorCode
		status int
		reason string
	}{
		{ErrMissingFields, apperrors.ErrCodeMissingChallengeFields, http.StatusBadRequest, "missing_fields"},
		{ErrInvalidTimestamp, apperrors.ErrCodeInvalidTimestamp, http.StatusBadRequest, "invalid_timestamp"},
		{ErrInvalidSolution, apperrors.ErrCodeInvalidProofOfWork, http.StatusForbidden, "invalid_solution"},
	}
	for _, tc := range tests {
		t.Run(tc.reason, func(t *testing.T) {
			appErr := ToAppError(tc.err)
			if appErr.Code != tc.code || appErr.HTTPStatus != tc.status {
				t.Errorf("unexpected mapping %+v", appErr)
			}
			if Reason(tc.err) != tc.reason {
				t.Errorf("expected reason %s, got %s", tc.reason, Reason(tc.err))
			}
		})
	}
	if ToAppError(nil) != nil {
		t.Error("ToAppError(nil) should be nil")
	}
}
