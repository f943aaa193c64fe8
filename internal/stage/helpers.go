package stage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"soundcheck/internal/config"
	"soundcheck/internal/queue"
)

// LoggerAware lets the workflow manager hand a stage-scoped logger to a
// handler before Prepare runs.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// ItemStagingDir returns the per-item working directory under the configured
// staging root. Every stage that writes intermediate files uses the same
// layout so cleanup can reason about it.
func ItemStagingDir(cfg *config.Config, item *queue.Item) string {
	if cfg == nil || item == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.StagingDir, fmt.Sprintf("item-%d", item.ID))
}

// MarkReview routes an item to the review queue with a human-readable reason.
// The caller is responsible for persisting the item afterwards.
func MarkReview(item *queue.Item, reason string) {
	if item == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	item.Status = queue.StatusReview
	item.NeedsReview = true
	item.ReviewReason = reason
	item.ProgressStage = "Review"
	item.ProgressMessage = reason
	item.LastHeartbeat = nil
}
