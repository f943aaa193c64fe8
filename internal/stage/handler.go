package stage

import (
	"context"

	"soundcheck/internal/queue"
)

// Handler is implemented by each pipeline stage (fetch, analyze, profile,
// report). Prepare runs before the item enters its processing status and may
// mutate the item; Execute does the work; HealthCheck feeds status output.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
