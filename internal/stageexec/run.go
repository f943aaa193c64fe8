// Package stageexec runs a single pipeline stage outside the daemon's lane
// loop. The CLI's one-shot workflows (analyze a local file, re-run a report)
// use it to get the same queue transitions and failure handling the daemon
// applies, without starting lanes.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
	"soundcheck/internal/stage"
)

// Handler is the minimal stage contract the runner needs.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// Options names the stage, the status pair it moves the item through, and the
// collaborators the runner persists and reports with.
type Options struct {
	Logger     *slog.Logger
	Store      *queue.Store
	Notifier   notifications.Service
	Handler    Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
	Item       *queue.Item
}

// Run drives one item through Prepare and Execute, persisting the item after
// every phase so an interrupted run leaves an accurate queue row behind.
func Run(ctx context.Context, opts Options) error {
	if err := validate(opts); err != nil {
		return err
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	item := opts.Item
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String(logging.FieldTrackTitle, strings.TrimSpace(item.Title)),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
	)

	setItemProcessingState(item, opts.Processing)
	if err := opts.Store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}
	if err := opts.Store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}

	// Handlers may set review or failed themselves; only advance an item
	// still sitting on the processing status.
	if item.Status == opts.Processing || item.Status == "" {
		item.Status = opts.Done
	}
	item.LastHeartbeat = nil
	if err := opts.Store.Update(stageCtx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String("progress_stage", strings.TrimSpace(item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
	)

	return nil
}

func validate(opts Options) error {
	switch {
	case opts.Handler == nil:
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	case opts.Store == nil:
		return fmt.Errorf("queue store is required")
	case opts.Item == nil:
		return fmt.Errorf("queue item is required")
	}
	return nil
}

// handleFailure records the failure on the item, routing review-class errors
// to the review queue instead of failed, then notifies and returns the
// original error.
func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	item := opts.Item

	message := "stage failed"
	if stageErr != nil {
		if detail := strings.TrimSpace(services.Details(stageErr).Message); detail != "" {
			message = detail
		} else if text := strings.TrimSpace(stageErr.Error()); text != "" {
			message = text
		}
	}

	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.Status = queue.StatusReview
		item.NeedsReview = true
		item.ReviewReason = message
		item.ErrorMessage = message
		item.ProgressStage = "Review"
		item.ProgressMessage = message
		item.LastHeartbeat = nil
	} else {
		item.SetFailed(message)
	}

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := opts.Store.Update(ctx, item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil && stageErr != nil {
		payload := notifications.Payload{
			"error":   stageErr,
			"context": fmt.Sprintf("%s (item #%d)", opts.StageName, item.ID),
		}
		if err := opts.Notifier.Publish(ctx, notifications.EventError, payload); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}

	return stageErr
}

func setItemProcessingState(item *queue.Item, processing queue.Status) {
	now := time.Now().UTC()
	item.Status = processing
	if item.ProgressStage == "" {
		item.ProgressStage = deriveStageLabel(processing)
	}
	if item.ProgressMessage == "" {
		item.ProgressMessage = deriveStageLabel(processing) + " started"
	}
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
}

// deriveStageLabel turns a status like "gap_check" into "Gap Check".
func deriveStageLabel(status queue.Status) string {
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
