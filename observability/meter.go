package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/authgate/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricSignup             = "auth.signup"
	MetricLogin              = "auth.login"
	MetricRefresh            = "auth.refresh"
	MetricLogout             = "auth.logout"
	MetricAuthFailures       = "auth.failures"
	MetricPowRejections      = "pow.rejections"
	MetricRateLimitRejection = "ratelimit.rejections"
)

// AuthMetrics holds the counters for authentication traffic. A nil
// *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	signup     metric.Int64Counter
	login      metric.Int64Counter
	refresh    metric.Int64Counter
	logout     metric.Int64Counter
	failures   metric.Int64Counter
	pow        metric.Int64Counter
	rateLimits metric.Int64Counter
}

// NewAuthMetrics creates the instruments on meter. A nil meter uses the
// global provider.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	if meter == nil {
		meter = Meter(instrumentationName)
	}

	m := &AuthMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.signup, MetricSignup, "Successful signups"},
		{&m.login, MetricLogin, "Successful logins"},
		{&m.refresh, MetricRefresh, "Access tokens issued from a refresh token"},
		{&m.logout, MetricLogout, "Logouts"},
		{&m.failures, MetricAuthFailures, "Failed authentication attempts by reason"},
		{&m.pow, MetricPowRejections, "Requests rejected by the proof-of-work gate by reason"},
		{&m.rateLimits, MetricRateLimitRejection, "Requests rejected by a rate limiter"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *AuthMetrics) Signup(ctx context.Context) {
	if m != nil {
		m.signup.Add(ctx, 1)
	}
}

func (m *AuthMetrics) Login(ctx context.Context) {
	if m != nil {
		m.login.Add(ctx, 1)
	}
}

func (m *AuthMetrics) Refresh(ctx context.Context) {
	if m != nil {
		m.refresh.Add(ctx, 1)
	}
}

func (m *AuthMetrics) Logout(ctx context.Context) {
	if m != nil {
		m.logout.Add(ctx, 1)
	}
}

// Failure counts a failed operation, e.g. ("login", "invalid_credentials").
func (m *AuthMetrics) Failure(ctx context.Context, operation, reason string) {
	if m != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("reason", reason),
		))
	}
}

// PowRejection counts a request rejected by the proof-of-work gate.
func (m *AuthMetrics) PowRejection(ctx context.Context, reason string) {
	if m != nil {
		m.pow.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RateLimitRejection counts a request rejected by the named limiter.
func (m *AuthMetrics) RateLimitRejection(ctx context.Context, limiter string) {
	if m != nil {
		m.rateLimits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
	}
}
