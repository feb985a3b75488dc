// internal/billing/sweep.go
package billing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunOverdueSweep calls RefreshOverdue once immediately and then on every tick of interval
// until ctx is cancelled. Failures are logged and retried on the next tick.
func RunOverdueSweep(ctx context.Context, svc Service, interval time.Duration, now func() time.Time, log *zap.Logger) {
	log = log.Named("billing.sweep")
	sweep := func() {
		if _, err := svc.RefreshOverdue(ctx, now()); err != nil && ctx.Err() == nil {
			log.Warn("overdue sweep failed", zap.Error(err))
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
