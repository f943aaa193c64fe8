package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"soundcheck/internal/api"
	"soundcheck/internal/ipc"
	"soundcheck/internal/logs"
)

// ErrFiltersRequireAPI is returned when the caller asked for filtered output
// but only the plain-text IPC tail is reachable. The socket tail carries raw
// lines and cannot filter by field.
var ErrFiltersRequireAPI = errors.New("log filters require API access")

// TailClient is the IPC surface used when the HTTP log API is down.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Filters narrows the event stream. Zero values match everything.
type Filters struct {
	Component string
	Lane      string
	RequestID string
	ItemID    int64
	Level     string
	Alert     string
	Decision  string
	Search    string
}

func (f Filters) empty() bool {
	for _, s := range []string{f.Component, f.Lane, f.RequestID, f.Level, f.Alert, f.Decision, f.Search} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return f.ItemID == 0
}

// Options controls how much history to show and whether to keep following.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// Stream delivers log output, preferring the structured HTTP API and falling
// back to the raw IPC tail when the API is unreachable. The return value
// reports whether anything was emitted.
func Stream(
	ctx context.Context,
	apiClient *logs.StreamClient,
	fallback TailClient,
	opts Options,
	onEvent func(api.LogEvent),
	onLine func(string),
) (bool, error) {
	printed, err := streamAPI(ctx, apiClient, opts, onEvent)
	if err == nil {
		return printed, nil
	}
	if !logs.IsAPIUnavailable(err) {
		return printed, err
	}
	if !opts.Filters.empty() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireAPI, logs.ErrAPIUnavailable)
	}
	if fallback == nil {
		return false, logs.ErrAPIUnavailable
	}
	return streamRawTail(ctx, fallback, opts, onLine)
}

func streamAPI(
	ctx context.Context,
	client *logs.StreamClient,
	opts Options,
	onEvent func(api.LogEvent),
) (bool, error) {
	query := logs.StreamQuery{
		Limit:         opts.Lines,
		Tail:          true,
		Component:     opts.Filters.Component,
		Lane:          opts.Filters.Lane,
		CorrelationID: opts.Filters.RequestID,
		ItemID:        opts.Filters.ItemID,
		Level:         opts.Filters.Level,
		Alert:         opts.Filters.Alert,
		DecisionType:  opts.Filters.Decision,
		Search:        opts.Filters.Search,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		// Switch from tail mode to cursor mode for subsequent rounds.
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func streamRawTail(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	limit := opts.Lines
	if limit < 0 {
		limit = 0
	}
	// Offset -1 asks the daemon for the trailing lines; with no line budget
	// we start at the beginning of new output instead.
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
