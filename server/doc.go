// Package server provides the authgate HTTP server: Gin behind
// server-wide net/http middleware, with HTTP/2 cleartext (h2c) support.
//
// # Middleware
//
// Server-wide (server/middleware, applied by ApplyMiddleware):
//
//   - Recovery: panic recovery with a 500 INTERNAL_ERROR body
//   - RequestID: X-Request-Id generation and propagation into log context
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body cap
//   - RequestLogger: one log line per request, health checks skipped
//
// Route-level gin middleware:
//
//   - RateLimit: fixed-window limiter with X-RateLimit-* headers
//   - ProofOfWork: stateless proof-of-work gate
//   - Auth: bearer token authentication
//
// # Endpoints
//
// RegisterDefaultEndpoints adds /health, /health/live, /health/ready and
// /version (server/endpoint).
package server
