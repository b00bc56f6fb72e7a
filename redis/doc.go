// Package redis provides a Redis client component with connection pooling,
// lifecycle management and health checks.
//
// It wraps go-redis with authgate logging and configuration conventions.
// The redis token store backend is built on it.
//
//	cfg := redis.Config{Enabled: true, Addr: "localhost:6379"}
//	comp := redis.NewComponent(cfg, log)
//	registry.Register(comp)
package redis
