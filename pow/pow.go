// Package pow verifies stateless proof-of-work challenges.
//
// A client picks a nonce such that hex(sha256(fingerprint || timestamp ||
// nonce)) starts with difficulty zero digits, and sends all four values as
// headers. Nothing is stored between requests: freshness comes from the
// timestamp window.
package pow

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/kbukum/authgate/errors"
)

// Challenge headers.
const (
	HeaderTimestamp   = "X-Timestamp"
	HeaderFingerprint = "X-Fingerprint"
	HeaderNonce       = "X-Pow-Nonce"
	HeaderSolution    = "X-Pow-Solution"
)

var (
	ErrMissingFields    = errors.New("pow: missing challenge fields")
	ErrInvalidTimestamp = errors.New("pow: timestamp invalid or outside window")
	ErrInvalidSolution  = errors.New("pow: invalid solution")
)

// Challenge is the raw header values of a request.
type Challenge struct {
	Timestamp   string
	Fingerprint string
	Nonce       string
	Solution    string
}

// ChallengeFromHeaders reads the four challenge headers.
func ChallengeFromHeaders(h http.Header) Challenge {
	return Challenge{
		Timestamp:   h.Get(HeaderTimestamp),
		Fingerprint: h.Get(HeaderFingerprint),
		Nonce:       h.Get(HeaderNonce),
		Solution:    h.Get(HeaderSolution),
	}
}

// Apply sets the challenge headers on h.
func (c Challenge) Apply(h http.Header) {
	h.Set(HeaderTimestamp, c.Timestamp)
	h.Set(HeaderFingerprint, c.Fingerprint)
	h.Set(HeaderNonce, c.Nonce)
	h.Set(HeaderSolution, c.Solution)
}

// Proof describes an accepted challenge.
type Proof struct {
	Hash        string `json:"hash"`
	Difficulty  int    `json:"difficulty"`
	Timestamp   string `json:"timestamp"`
	Fingerprint string `json:"fingerprint"`
	Nonce       string `json:"nonce"`
}

// Gate verifies challenges against a difficulty and a freshness window.
type Gate struct {
	difficulty int
	prefix     string
	window     time.Duration
	now        func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a gate. Difficulty is clamped to at least 1 and the
// window to at least one second.
func NewGate(cfg Config, opts ...Option) *Gate {
	cfg.ApplyDefaults()
	difficulty := cfg.Difficulty
	if difficulty < 1 {
		difficulty = 1
	}
	window := cfg.WindowDuration()
	if window < time.Second {
		window = time.Second
	}
	g := &Gate{
		difficulty: difficulty,
		prefix:     strings.Repeat("0", difficulty),
		window:     window,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Difficulty returns the required number of leading zero hex digits.
func (g *Gate) Difficulty() int { return g.difficulty }

// Window returns the accepted clock skew.
func (g *Gate) Window() time.Duration { return g.window }

// Verify checks presence, then timestamp freshness, then the solution.
func (g *Gate) Verify(c Challenge) (*Proof, error) {
	if c.Timestamp == "" || c.Fingerprint == "" || c.Nonce == "" || c.Solution == "" {
		return nil, ErrMissingFields
	}

	ts, err := ParseTimestamp(c.Timestamp)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	skew := g.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > g.window {
		return nil, ErrInvalidTimestamp
	}

	candidate := Hash(c.Fingerprint, c.Timestamp, c.Nonce)
	match := subtle.ConstantTimeCompare([]byte(candidate), []byte(c.Solution)) == 1
	if !match || !strings.HasPrefix(candidate, g.prefix) {
		return nil, ErrInvalidSolution
	}

	return &Proof{
		Hash:        candidate,
		Difficulty:  g.difficulty,
		Timestamp:   c.Timestamp,
		Fingerprint: c.Fingerprint,
		Nonce:       c.Nonce,
	}, nil
}

// Hash returns hex(sha256(fingerprint || timestamp || nonce)).
func Hash(fingerprint, timestamp, nonce string) string {
	sum := sha256.Sum256([]byte(fingerprint + timestamp + nonce))
	return hex.EncodeToString(sum[:])
}

// ParseTimestamp accepts RFC 3339, with or without fractional seconds,
// or integer unix milliseconds.
func ParseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Solve finds a nonce whose hash has difficulty leading zeros. Clients
// and tests use it; expected work grows as 16^difficulty.
func Solve(fingerprint, timestamp string, difficulty int) (nonce, solution string) {
	if difficulty < 1 {
		difficulty = 1
	}
	prefix := strings.Repeat("0", difficulty)
	for i := uint64(0); ; i++ {
		nonce = strconv.FormatUint(i, 10)
		solution = Hash(fingerprint, timestamp, nonce)
		if strings.HasPrefix(solution, prefix) {
			return nonce, solution
		}
	}
}

// NewChallenge solves a challenge for fingerprint at time at.
func NewChallenge(fingerprint string, at time.Time, difficulty int) Challenge {
	ts := at.UTC().Format(time.RFC3339Nano)
	nonce, solution := Solve(fingerprint, ts, difficulty)
	return Challenge{Timestamp: ts, Fingerprint: fingerprint, Nonce: nonce, Solution: solution}
}

// Reason returns a short label for a verification error, used in metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(err, ErrInvalidSolution):
		return "invalid_solution"
	default:
		return "unknown"
	}
}

// ToAppError maps a verification error to its HTTP error.
func ToAppError(err error) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissingFields):
		return apperrors.MissingChallengeFields()
	case errors.Is(err, ErrInvalidTimestamp):
		return apperrors.InvalidTimestamp()
	case errors.Is(err, ErrInvalidSolution):
		return apperrors.InvalidProofOfWork()
	default:
		return apperrors.Internal(err)
	}
}
