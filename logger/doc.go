// Package logger provides structured logging for authgate using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("authgate").WithComponent("tokenstore")
//	log.Info("purged expired tokens", logger.Fields("count", n))
package logger
