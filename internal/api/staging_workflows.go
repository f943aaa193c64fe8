package api

import (
	"context"
	"fmt"
	"strings"

	"soundcheck/internal/staging"
)

// ActiveItemProvider surfaces queue item IDs whose staging dirs must survive cleanup.
type ActiveItemProvider interface {
	ActiveItemIDs(ctx context.Context) (map[int64]struct{}, error)
}

type CleanStagingRequest struct {
	StagingDir  string
	CleanAll    bool
	ActiveItems ActiveItemProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanStaleResult
}

// CleanStagingDirectories applies staging cleanup policy used by CLI commands.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanStale(ctx, stagingDir, 0, nil),
		}, nil
	}

	if req.ActiveItems == nil {
		return CleanStagingResult{}, fmt.Errorf("active item provider is required when clean_all is false")
	}
	active, err := req.ActiveItems.ActiveItemIDs(ctx)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, active, nil),
	}, nil
}
