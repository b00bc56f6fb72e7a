package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Policy configures Retry. Zero fields take the defaults noted below.
type Policy struct {
	// Attempts is the total number of calls, including the first (default: 3).
	Attempts int

	// Initial is the wait after the first failure (default: 100ms).
	Initial time.Duration

	// Max caps every wait (default: 5s).
	Max time.Duration

	// Factor multiplies the wait after each failure (default: 2).
	Factor float64

	// Jitter spreads each wait by up to this fraction either way (0 to 1).
	Jitter float64

	// RetryIf reports whether err is worth another attempt. The default
	// retries everything except context cancellation.
	RetryIf func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Initial <= 0 {
		p.Initial = 100 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 5 * time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	if p.RetryIf == nil {
		p.RetryIf = notCanceled
	}
	return p
}

func notCanceled(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	wait := float64(p.Initial) * math.Pow(p.Factor, float64(attempt-1))
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (rand.Float64()*2 - 1)
	}
	if wait > float64(p.Max) {
		wait = float64(p.Max)
	}
	if wait < 0 {
		wait = float64(p.Initial)
	}
	return time.Duration(wait)
}

// Retry calls fn until it succeeds, RetryIf rejects the error, attempts
// run out or ctx is done. It returns the last error from fn, or ctx.Err()
// when canceled while waiting.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.Attempts || !p.RetryIf(err) {
			return zero, err
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// Do is Retry for functions without a result.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
