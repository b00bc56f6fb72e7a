// Package observability wires OpenTelemetry tracing and metrics into
// authgate.
//
// The Component installs OTLP/HTTP tracer and meter providers when
// enabled. AuthMetrics counts signups, logins, refreshes, logouts and
// rejections from the proof-of-work gate and the rate limiters:
//
//	metrics, err := observability.NewAuthMetrics(nil)
//	metrics.Failure(ctx, "login", "invalid_credentials")
//
// Spans wrap each orchestrator operation:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanLogin)
//	defer func() { observability.EndSpan(span, err) }()
package observability
