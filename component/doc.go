// Package component defines the lifecycle contract shared by authgate's
// infrastructure (database, redis, HTTP server, background workers) and a
// Registry that starts them in order and stops them in reverse.
package component
