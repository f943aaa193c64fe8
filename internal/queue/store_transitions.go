package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?)`,
		StatusFetching, StatusPending,
		StatusAnalyzing, StatusFetched,
		StatusProfiling, StatusAnalyzed,
		StatusReporting, StatusProfiled,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFetching,
		StatusAnalyzing,
		StatusProfiling,
		StatusReporting,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start
// of their current stage when heartbeats expire, counting each reclaim
// against the item's retry budget. A stale item that has already been
// reclaimed maxRetries times is failed instead of re-queued, so a source
// that crashes its worker cannot loop forever. When statuses are provided
// only those processing states are considered; otherwise all of them are.
// Returns the reclaimed and exhausted counts.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, maxRetries int, statuses ...Status) (int64, int64, error) {
	targets := make([]Status, 0, len(processingStatuses))
	if len(statuses) == 0 {
		for _, transition := range stageRollbackTransitions {
			targets = append(targets, transition.from)
		}
	} else {
		for _, status := range statuses {
			if _, ok := processingStatuses[status]; ok {
				targets = append(targets, status)
			}
		}
	}
	if len(targets) == 0 {
		return 0, 0, nil
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	staleCutoff := cutoff.UTC().Format(time.RFC3339Nano)
	placeholders := makePlaceholders(len(targets))

	exhausted, err := s.failExhaustedStale(ctx, now, staleCutoff, placeholders, targets, maxRetries)
	if err != nil {
		return 0, 0, err
	}

	args := make([]any, 0, len(stageRollbackTransitions)*2+len(targets)+3)
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from, transition.to)
	}
	args = append(args, now)
	for _, status := range targets {
		args = append(args, status)
	}
	args = append(args, staleCutoff, maxRetries)

	query := `UPDATE queue_items
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL,
            retry_count = retry_count + 1, updated_at = ?
        WHERE status IN (` + placeholders + `) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?
          AND retry_count < ?`

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	reclaimed, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return reclaimed, exhausted, nil
}

// failExhaustedStale terminally fails stale items that have spent their retry
// budget.
func (s *Store) failExhaustedStale(ctx context.Context, now, staleCutoff, placeholders string, targets []Status, maxRetries int) (int64, error) {
	message := fmt.Sprintf("stage heartbeat expired; retry limit of %d reached", maxRetries)

	args := make([]any, 0, len(targets)+5)
	args = append(args, StatusFailed, message, message, now)
	for _, status := range targets {
		args = append(args, status)
	}
	args = append(args, staleCutoff, maxRetries)

	query := `UPDATE queue_items
        SET status = ?, error_message = ?, progress_stage = 'Failed',
            progress_percent = 0, progress_message = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (` + placeholders + `) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?
          AND retry_count >= ?`

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("fail retry-exhausted items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed and review items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, needs_review = 0,
                review_reason = NULL, retry_count = 0, updated_at = ?
            WHERE status IN (?, ?)`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
			StatusReview,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed, StatusReview)
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, needs_review = 0,
            review_reason = NULL, retry_count = 0, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// StopItems fails the given in-flight items so the workflow stops picking
// them up. Completed and already-failed items are left untouched.
func (s *Store) StopItems(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+5)
	args = append(args,
		StatusFailed,
		"Stopped by user",
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusCompleted, StatusFailed)
	query := `UPDATE queue_items
        SET status = ?, error_message = ?, progress_stage = 'Stopped',
            progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status NOT IN (?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stop items: %w", err)
	}
	return res.RowsAffected()
}

// ActiveItemIDs returns the IDs of every queue row. Staging directories for
// these items must survive orphan cleanup.
func (s *Store) ActiveItemIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM queue_items`)
	if err != nil {
		return nil, fmt.Errorf("list active item ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
