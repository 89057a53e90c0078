// Package reconcile converges requests stuck in escrow_pending against
// gateway truth. Webhooks are the fast path; this loop is the safety
// net for deliveries that never arrive.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/knakagawa/lessonpay/internal/escrow"
	"github.com/knakagawa/lessonpay/internal/metrics"
	"github.com/knakagawa/lessonpay/internal/request"
)

const batchSize = 100

// Runner sweeps pending requests older than the window and asks the
// coordinator to converge each one.
type Runner struct {
	store  request.Store
	coord  *escrow.Coordinator
	window time.Duration
	logger *slog.Logger
}

func NewRunner(store request.Store, coord *escrow.Coordinator, window time.Duration, logger *slog.Logger) *Runner {
	return &Runner{store: store, coord: coord, window: window, logger: logger}
}

// RunOnce processes one batch. Returns how many requests changed state.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.window)
	pending, err := r.store.ListPendingOlderThan(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var recovered int
	for _, req := range pending {
		changed, err := r.coord.Reconcile(ctx, req)
		if err != nil {
			r.logger.Warn("reconcile failed for request",
				"request_id", req.ID, "session_id", req.GatewaySessionID, "error", err)
			metrics.ReconcileStuckTotal.Inc()
			continue
		}
		if changed {
			recovered++
			metrics.ReconcileRecoveredTotal.Inc()
		} else {
			// Session still open at the gateway; the payer may yet finish.
			metrics.ReconcileStuckTotal.Inc()
		}
	}

	r.logger.Info("reconcile sweep finished",
		"scanned", len(pending), "recovered", recovered)
	return recovered, nil
}
