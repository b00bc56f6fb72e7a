package tokenstore

import (
	"context"
	"time"

	"github.com/kbukum/authgate/component"
	"github.com/kbukum/authgate/logger"
)

// NewSweeper returns a component that purges expired records every
// interval. Token liveness never depends on it.
func NewSweeper(store Store, interval time.Duration, log *logger.Logger) *component.Periodic {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	sweepLog := log.WithComponent("token-sweeper")
	return component.NewPeriodic("token-sweeper", interval, func(ctx context.Context) error {
		start := time.Now()
		n, err := store.Purge(ctx, start)
		if err != nil {
			return err
		}
		if n > 0 {
			fields := logger.DurationFields("purge", time.Since(start))
			fields["purged"] = n
			sweepLog.Info("Purged expired tokens", fields)
		}
		return nil
	}, log)
}
