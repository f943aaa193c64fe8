package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
)

// logNotifyFailure downgrades notification errors to debug. A dead ntfy
// endpoint must never affect pipeline progress.
func (m *Manager) logNotifyFailure(err error, shutdownMsg, failMsg string) {
	if errors.Is(err, context.Canceled) {
		m.logger.Debug(shutdownMsg)
		return
	}
	m.logger.Debug(failMsg, logging.Error(err))
}

func (m *Manager) notifyStageError(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"error":   stageErr,
		"context": fmt.Sprintf("%s (item #%d)", stageName, item.ID),
	})
	if err != nil {
		logger := logging.WithContext(ctx, m.logger.With(logging.String("component", "workflow-manager")))
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send error notification")
		} else {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
}

// onItemStarted fires the queue-started notification the first time an item
// begins processing after an idle period.
func (m *Manager) onItemStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not get queue stats for start notification")
		} else {
			m.logger.Warn("queue stats unavailable for start notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "start notification will not be sent"),
			)
		}
		return
	}

	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	if err := m.notifier.Publish(ctx, notifications.EventQueueStarted, notifications.Payload{
		"count": countWorkItems(stats),
	}); err != nil {
		m.logNotifyFailure(err,
			"daemon shutting down, could not send queue start notification",
			"queue start notification failed")
	}
}

// checkQueueCompletion fires the queue-completed notification once nothing
// active remains.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue completion")
		} else {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	if countActiveItems(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	var duration time.Duration
	if !start.IsZero() {
		duration = time.Since(start)
	}
	if err := m.notifier.Publish(ctx, notifications.EventQueueCompleted, notifications.Payload{
		"processed": stats[queue.StatusCompleted],
		"failed":    stats[queue.StatusFailed],
		"duration":  duration,
	}); err != nil {
		m.logNotifyFailure(err,
			"daemon shutting down, could not send queue completion notification",
			"queue completion notification failed")
	}
}

func countWorkItems(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		if status == queue.StatusCompleted || status == queue.StatusFailed {
			continue
		}
		total += count
	}
	return total
}

func countActiveItems(stats map[queue.Status]int) int {
	total := 0
	for _, status := range []queue.Status{
		queue.StatusPending,
		queue.StatusFetching,
		queue.StatusFetched,
		queue.StatusAnalyzing,
		queue.StatusAnalyzed,
		queue.StatusProfiling,
		queue.StatusProfiled,
		queue.StatusReporting,
	} {
		total += stats[status]
	}
	return total
}
