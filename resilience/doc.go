// Package resilience retries transient failures with capped exponential
// backoff. The database component uses it to connect at startup.
//
//	db, err := resilience.Retry(ctx, resilience.Policy{
//	    Attempts: cfg.MaxRetries,
//	    Initial:  200 * time.Millisecond,
//	}, func(ctx context.Context) (*DB, error) {
//	    return open(ctx, cfg)
//	})
package resilience
