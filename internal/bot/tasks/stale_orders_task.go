package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStaleOrdersTask returns the task that cancels pending orders
// abandoned for longer than the configured age.
func newStaleOrdersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "stale_orders")
	maxAge := deps.Config.Bot.StaleOrderAge

	return func(ctx context.Context) error {
		if maxAge <= 0 {
			log.DebugContext(ctx, "Stale order cancellation disabled (non-positive max age)")
			return nil
		}

		cutoff := time.Now().UTC().Add(-maxAge)
		cancelled, err := deps.Store.CancelStaleOrders(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("stale order cancellation failed: %w", err)
		}
		if cancelled > 0 {
			log.InfoContext(ctx, "Cancelled stale pending orders", "count", cancelled, "older_than", maxAge)
		}
		return nil
	}
}
