package api

import (
	"context"

	"soundcheck/internal/queue"
)

// QueueActionService is the queue surface the per-item retry and stop
// workflows need. Both the IPC client and direct store access satisfy it.
type QueueActionService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Stop(ctx context.Context, ids []int64) (int64, error)
}

type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

type RetryItemResult struct {
	ID        int64            `json:"id"`
	Outcome   RetryItemOutcome `json:"outcome"`
	NewStatus string           `json:"new_status,omitempty"`
}

type RetryItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

type StopItemOutcome string

const (
	StopItemUpdated          StopItemOutcome = "stopped"
	StopItemNotFound         StopItemOutcome = "not_found"
	StopItemAlreadyCompleted StopItemOutcome = "already_completed"
	StopItemAlreadyFailed    StopItemOutcome = "already_failed"
)

type StopItemResult struct {
	ID          int64           `json:"id"`
	Outcome     StopItemOutcome `json:"outcome"`
	PriorStatus string          `json:"prior_status,omitempty"`
}

type StopItemsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Items        []StopItemResult `json:"items"`
}

// RetryFailedItemsByID retries each listed item, reporting a per-item
// outcome. Only failed and review items are eligible; anything else is
// reported as not_failed rather than silently skipped.
func RetryFailedItemsByID(ctx context.Context, service QueueActionService, ids []int64) (RetryItemsResult, error) {
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}

		outcome := RetryItemNotFound
		if item != nil {
			status, ok := queue.ParseStatus(item.Status)
			if ok && (status == queue.StatusFailed || status == queue.StatusReview) {
				updated, err := service.Retry(ctx, []int64{id})
				if err != nil {
					return RetryItemsResult{}, err
				}
				if updated > 0 {
					result.UpdatedCount += updated
					outcome = RetryItemUpdated
				} else {
					outcome = RetryItemNotFailed
				}
			} else {
				outcome = RetryItemNotFailed
			}
		}
		result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: outcome})
	}
	return result, nil
}

// StopItemsByID stops each listed item unless it already reached a terminal
// status, recording the status the item held before the stop.
func StopItemsByID(ctx context.Context, service QueueActionService, ids []int64) (StopItemsResult, error) {
	result := StopItemsResult{Items: make([]StopItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return StopItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemNotFound})
			continue
		}

		prior := item.Status
		if parsed, ok := queue.ParseStatus(prior); ok {
			switch parsed {
			case queue.StatusCompleted:
				result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemAlreadyCompleted, PriorStatus: prior})
				continue
			case queue.StatusFailed:
				result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemAlreadyFailed, PriorStatus: prior})
				continue
			}
		}

		updated, err := service.Stop(ctx, []int64{id})
		if err != nil {
			return StopItemsResult{}, err
		}
		outcome := StopItemAlreadyFailed
		if updated > 0 {
			result.UpdatedCount += updated
			outcome = StopItemUpdated
		}
		result.Items = append(result.Items, StopItemResult{ID: id, Outcome: outcome, PriorStatus: prior})
	}
	return result, nil
}
