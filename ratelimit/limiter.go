// Package ratelimit implements a fixed-window request counter per key.
//
// Each Limiter owns its own mutex-protected map; there is no package
// state. A janitor component evicts windows that have ended so the map
// stays bounded by the number of recently active keys.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/logger"
)

// GlobalKey is used when the key function yields an empty key.
const GlobalKey = "global"

type entry struct {
	count   int
	resetAt time.Time
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	name   string
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter allowing rule.Max requests per rule.Window.
func New(name string, rule Rule, opts ...Option) *Limiter {
	rule.applyDefaults(100, time.Minute)
	l := &Limiter{
		name:    name,
		max:     rule.Max,
		window:  rule.WindowDuration(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the limiter name, used in logs and metrics.
func (l *Limiter) Name() string { return l.name }

// Allow counts one request for key. A window that has ended is reset
// before counting.
func (l *Limiter) Allow(key string) Result {
	if key == "" {
		key = GlobalKey
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(l.window)}
		l.entries[key] = e
	}
	e.count++
	count, resetAt := e.count, e.resetAt
	l.mu.Unlock()

	res := Result{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: max(0, l.max-count),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = retryAfter(resetAt.Sub(now))
	}
	return res
}

// retryAfter rounds up to whole seconds with a floor of one second.
func retryAfter(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}

// Evict removes entries whose window has ended and returns how many.
func (l *Limiter) Evict() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// NewJanitor returns a component that evicts ended windows every interval.
func NewJanitor(l *Limiter, interval time.Duration, log *logger.Logger) *component.Periodic {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	name := "ratelimit-janitor-" + l.name
	jlog := log.WithComponent(name)
	return component.NewPeriodic(name, interval, func(_ context.Context) error {
		if n := l.Evict(); n > 0 {
			jlog.Debug("Evicted rate limit windows", logger.Fields("evicted", n, "tracked", l.Len()))
		}
		return nil
	}, log)
}
