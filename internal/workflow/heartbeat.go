package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
)

// HeartbeatMonitor keeps in-flight items alive and sweeps up ones whose
// worker died mid-stage. An item whose heartbeat goes quiet past the timeout
// is handed back to its lane for another attempt.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	maxRetries        int
}

func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration, maxRetries int) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
		maxRetries:        maxRetries,
	}
}

// ReclaimStaleItems resets items in the given processing statuses whose last
// heartbeat predates the timeout. Each reclaim spends one retry; items past
// the retry budget are failed terminally instead of re-queued. A zero
// timeout disables reclamation.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger, statuses []queue.Status) error {
	if h.heartbeatTimeout <= 0 || len(statuses) == 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, exhausted, err := h.store.ReclaimStaleProcessing(ctx, cutoff, h.maxRetries, statuses...)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale items", logging.Int64("count", reclaimed))
	}
	if exhausted > 0 {
		logger.Warn("failed stale items that exhausted retries",
			logging.Int64("count", exhausted),
			logging.Int("max_retries", h.maxRetries),
			logging.String(logging.FieldEventType, "retry_limit_reached"),
			logging.String(logging.FieldErrorHint, "inspect the item log, then retry manually"),
			logging.String(logging.FieldImpact, "items moved to failed"),
		)
	}
	return nil
}

// StartLoop stamps the item's heartbeat on every tick until ctx ends. One
// loop runs per item being processed.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String("component", "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.store.UpdateHeartbeat(ctx, itemID)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				logger.Info("daemon shutting down, heartbeat update cancelled")
			default:
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
