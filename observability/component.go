package observability

import (
	"context"
	"errors"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/logger"
)

// Component installs the OTLP tracer and meter providers on Start and
// flushes them on Stop. When disabled it does nothing and the global
// no-op providers stay in place.
type Component struct {
	cfg     Config
	service string
	version string
	env     string
	log     *logger.Logger

	mu sync.Mutex
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the observability component.
func NewComponent(cfg Config, service, version, env string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:     cfg,
		service: service,
		version: version,
		env:     env,
		log:     log.WithComponent("observability"),
	}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}

	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    c.service,
		ServiceVersion: c.version,
		Environment:    c.env,
		Endpoint:       c.cfg.Endpoint,
		Insecure:       c.cfg.Insecure,
		SampleRate:     c.cfg.SampleRate,
	})
	if err != nil {
		return err
	}

	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName:    c.service,
		ServiceVersion: c.version,
		Environment:    c.env,
		Endpoint:       c.cfg.Endpoint,
		Insecure:       c.cfg.Insecure,
		Interval:       c.cfg.MetricInterval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	c.mu.Lock()
	c.tp, c.mp = tp, mp
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	tp, mp := c.tp, c.mp
	c.tp, c.mp = nil, nil
	c.mu.Unlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "disabled"
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = "otlp http " + c.cfg.Endpoint
	}
	return component.Description{Name: "OpenTelemetry", Type: "observability", Details: details}
}
