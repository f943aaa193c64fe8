package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
)

// handleStageFailure records a stage error on the item, persists it, and
// fires the failure notification path.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := m.stageLoggerForLane(ctx, nil, base, item).With(logging.String("component", "workflow-manager"))

	message := m.classifyStageFailure(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	m.setItemFailureState(item, resolved, message)

	details := services.Details(stageErr)
	cause := details.Cause
	if cause == nil {
		cause = stageErr
	}
	logger.Error("stage failed", logging.Args(
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "stage_failure"),
	)...)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.notifyStageError(ctx, stageName, item, stageErr)
	m.checkQueueCompletion(ctx)
}

// classifyStageFailure picks the most specific message available: service
// error details, then the raw error text, then a generic stage label.
func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return m.getStageFailureMessage(stageName, "failed without error detail")
	}

	details := services.Details(stageErr)
	if message := strings.TrimSpace(details.Message); message != "" {
		return message
	}
	if message := strings.TrimSpace(stageErr.Error()); message != "" {
		return message
	}
	return m.getStageFailureMessage(stageName, "failed")
}

func (m *Manager) getStageFailureMessage(stageName, defaultMsg string) string {
	if stageName == "" {
		return fmt.Sprintf("workflow %s", defaultMsg)
	}
	return fmt.Sprintf("%s %s", stageName, defaultMsg)
}

// setItemFailureState routes the item per error kind: user-fixable problems
// (validation, configuration, not found) land in review, everything else
// fails outright.
func (m *Manager) setItemFailureState(item *queue.Item, resolved queue.Status, message string) {
	if resolved != queue.StatusReview {
		item.SetFailed(message)
		return
	}
	item.Status = queue.StatusReview
	item.NeedsReview = true
	item.ReviewReason = message
	item.ErrorMessage = message
	item.ProgressStage = "Review"
	item.ProgressMessage = message
	item.LastHeartbeat = nil
}
