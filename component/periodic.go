package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/authgate/logger"
)

// Periodic is a Component that runs a task on a fixed interval until
// stopped. The token sweeper and the rate limiter janitor use it.
type Periodic struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	runs    int
}

// NewPeriodic creates a periodic component. interval must be positive.
func NewPeriodic(name string, interval time.Duration, task func(ctx context.Context) error, log *logger.Logger) *Periodic {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		log:      log.WithComponent(name),
	}
}

func (p *Periodic) Name() string { return p.name }

// Start launches the background loop.
func (p *Periodic) Start(_ context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", p.name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	return nil
}

func (p *Periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes the task immediately and records the result.
func (p *Periodic) RunOnce(ctx context.Context) error {
	err := p.task(ctx)

	p.mu.Lock()
	p.lastErr = err
	p.runs++
	p.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		p.log.Warn("Periodic task failed", logger.ErrorFields(p.name, err))
	}
	return err
}

// Stop cancels the loop and waits for it to exit.
func (p *Periodic) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports degraded when the last run failed.
func (p *Periodic) Health(_ context.Context) Health {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := Health{Name: p.name, Status: StatusHealthy}
	if p.lastErr != nil {
		h.Status = StatusDegraded
		h.Message = p.lastErr.Error()
	}
	return h
}

// Describe implements Describable.
func (p *Periodic) Describe() Description {
	return Description{Name: p.name, Type: "worker", Details: "every " + p.interval.String()}
}
