package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/authgate/logger"
)

// ErrNil is returned by Get when the key does not exist.
var ErrNil = goredis.Nil

// Client wraps a go-redis client with authgate logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a new Redis client with the given configuration and logger.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	opts := &goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  mustDuration(cfg.DialTimeout),
		ReadTimeout:  mustDuration(cfg.ReadTimeout),
		WriteTimeout: mustDuration(cfg.WriteTimeout),
	}
	if d, ok := optionalDuration(cfg.MinRetryBackoff); ok {
		opts.MinRetryBackoff = d
	}
	if d, ok := optionalDuration(cfg.MaxRetryBackoff); ok {
		opts.MaxRetryBackoff = d
	}
	if d, ok := optionalDuration(cfg.PoolTimeout); ok {
		opts.PoolTimeout = d
	}

	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("redis %w", err)
	}
	opts.TLSConfig = tlsCfg

	rdb := goredis.NewClient(opts)

	log.Info("Redis client created", map[string]interface{}{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
		"tls":       tlsCfg != nil,
	})

	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Get retrieves a value by key. A missing key yields ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value with a key and expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// SetNX stores a value only if the key does not exist yet. It reports
// whether the value was written.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, expiration).Result()
}

// updateAttempts bounds how often Update re-reads a key that changed
// under WATCH.
const updateAttempts = 3

// ErrUpdateConflict is returned by Update when the key kept changing
// between read and write.
var ErrUpdateConflict = errors.New("redis: key changed during update")

// Update reads key, passes its value to fn and writes fn's result back in
// a WATCH/MULTI transaction, keeping the key's TTL. fn returns ok=false to
// skip the write. A missing or expired key is never recreated. Update
// reports whether a write happened.
func (c *Client) Update(ctx context.Context, key string, fn func(current string) (next string, ok bool, err error)) (bool, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		written := false
		err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := tx.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, goredis.Nil) {
					return nil
				}
				return err
			}
			next, ok, err := fn(current)
			if err != nil || !ok {
				return err
			}
			var set *goredis.StatusCmd
			_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				set = p.SetArgs(ctx, key, next, goredis.SetArgs{KeepTTL: true, Mode: "XX"})
				return nil
			})
			if errors.Is(err, goredis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			written = set.Err() == nil
			return nil
		}, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return written, err
	}
	return false, ErrUpdateConflict
}

// TTL returns the remaining lifetime of a key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists checks if one or more keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Exists(ctx, keys...).Result()
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for advanced operations.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}

// IsNil reports whether err means the key was missing.
func IsNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func optionalDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}
