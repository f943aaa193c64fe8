package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"soundcheck/internal/analyzer"
	"soundcheck/internal/config"
	"soundcheck/internal/fetcher"
	"soundcheck/internal/ingest"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profiler"
	"soundcheck/internal/queue"
	"soundcheck/internal/reporter"
	"soundcheck/internal/stageexec"
)

// EnqueueSourceRequest describes a URL or local file submission.
type EnqueueSourceRequest struct {
	Store   *queue.Store
	Kind    queue.Kind
	Source  string
	SetName string
}

// EnqueueSourceResult reports the queue item created (or already active)
// for the submission.
type EnqueueSourceResult struct {
	Item    *queue.Item
	Created bool
}

// EnqueueSource normalizes the source and inserts a queue item for it.
// URLs are deduplicated by their canonical video ID; local paths by their
// absolute path.
func EnqueueSource(ctx context.Context, req EnqueueSourceRequest) (EnqueueSourceResult, error) {
	if req.Store == nil {
		return EnqueueSourceResult{}, fmt.Errorf("queue store is required")
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return EnqueueSourceResult{}, fmt.Errorf("source URL or path is required")
	}

	if LooksLikeURL(source) {
		canonical, videoID := ingest.NormalizeURL(source)
		fingerprint := videoID
		if fingerprint == "" {
			fingerprint = canonical
		}
		item, created, err := req.Store.NewURL(ctx, req.Kind, canonical, fingerprint, req.SetName)
		if err != nil {
			return EnqueueSourceResult{}, err
		}
		return EnqueueSourceResult{Item: item, Created: created}, nil
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return EnqueueSourceResult{}, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return EnqueueSourceResult{}, fmt.Errorf("cannot read %s: %w", abs, err)
	}
	if !ingest.SupportedExtension(abs) {
		return EnqueueSourceResult{}, fmt.Errorf("unsupported audio format: %s", filepath.Ext(abs))
	}
	item, created, err := req.Store.NewFile(ctx, req.Kind, abs, req.SetName)
	if err != nil {
		return EnqueueSourceResult{}, err
	}
	return EnqueueSourceResult{Item: item, Created: created}, nil
}

// LooksLikeURL reports whether the source should be treated as a remote URL.
func LooksLikeURL(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RunGapCheckRequest drives a one-shot gap check without the daemon.
type RunGapCheckRequest struct {
	Config  *config.Config
	Store   *queue.Store
	Library *library.Store
	Source  string
	SetName string
	Kind    queue.Kind
	Logger  *slog.Logger
}

// RunGapCheckResult reports the terminal queue state of the one-shot run.
type RunGapCheckResult struct {
	Item       *queue.Item
	ReportPath string
	MatchScore float64
}

type pipelineStep struct {
	name       string
	handler    stageexec.Handler
	processing queue.Status
	done       queue.Status
}

// RunGapCheck pushes a single source through the full pipeline synchronously:
// fetch (for URLs), analyze, profile, report. It stops early when a stage
// parks the item in review or fails it.
func RunGapCheck(ctx context.Context, req RunGapCheckRequest) (RunGapCheckResult, error) {
	cfg := req.Config
	if cfg == nil {
		return RunGapCheckResult{}, fmt.Errorf("configuration is required")
	}
	if req.Store == nil || req.Library == nil {
		return RunGapCheckResult{}, fmt.Errorf("queue and library stores are required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	kind := req.Kind
	if kind == "" {
		kind = queue.KindCandidate
	}

	enqueued, err := EnqueueSource(ctx, EnqueueSourceRequest{
		Store:   req.Store,
		Kind:    kind,
		Source:  req.Source,
		SetName: req.SetName,
	})
	if err != nil {
		return RunGapCheckResult{}, err
	}
	item := enqueued.Item
	if !enqueued.Created {
		return RunGapCheckResult{}, fmt.Errorf("source is already queued as item #%d (%s)", item.ID, item.Status)
	}

	notifier := notifications.NewService(cfg)
	steps := []pipelineStep{
		{
			name:       "fetch",
			handler:    fetcher.New(cfg, req.Store, req.Library, logger),
			processing: queue.StatusFetching,
			done:       queue.StatusFetched,
		},
		{
			name:       "analyze",
			handler:    analyzer.New(cfg, req.Store, req.Library, logger),
			processing: queue.StatusAnalyzing,
			done:       queue.StatusAnalyzed,
		},
		{
			name:       "profile",
			handler:    profiler.New(cfg, req.Store, req.Library, logger),
			processing: queue.StatusProfiling,
			done:       queue.StatusProfiled,
		},
		{
			name:       "report",
			handler:    reporter.New(cfg, req.Store, req.Library, logger),
			processing: queue.StatusReporting,
			done:       queue.StatusCompleted,
		},
	}

	for _, step := range steps {
		// Local files enter at fetched; skip stages the item is already past.
		if item.Status != statusBefore(step.processing) {
			continue
		}
		if err := stageexec.Run(ctx, stageexec.Options{
			Logger:     logger,
			Store:      req.Store,
			Notifier:   notifier,
			Handler:    step.handler,
			StageName:  step.name,
			Processing: step.processing,
			Done:       step.done,
			Item:       item,
		}); err != nil {
			break
		}
		if item.Status != step.done {
			break
		}
	}

	result := RunGapCheckResult{Item: item}
	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	result.ReportPath = meta.ReportPath
	result.MatchScore = meta.MatchScore
	return result, nil
}

func statusBefore(processing queue.Status) queue.Status {
	switch processing {
	case queue.StatusFetching:
		return queue.StatusPending
	case queue.StatusAnalyzing:
		return queue.StatusFetched
	case queue.StatusProfiling:
		return queue.StatusAnalyzed
	case queue.StatusReporting:
		return queue.StatusProfiled
	default:
		return ""
	}
}

// GapCheckAssessment derives CLI-facing outcomes from the terminal queue state.
type GapCheckAssessment struct {
	Title          string
	Artist         string
	SetName        string
	MatchScore     float64
	ReportPath     string
	ReviewRequired bool
	ReviewReason   string
	Outcome        string
	OutcomeMessage string
}

// AssessGapCheck summarizes a finished one-shot run for display.
func AssessGapCheck(item *queue.Item) GapCheckAssessment {
	if item == nil {
		return GapCheckAssessment{
			Title:          "Unknown",
			Outcome:        "failed",
			OutcomeMessage: "Gap check failed. Check the logs above for details.",
		}
	}

	meta := parseMetadataFields(item.MetadataJSON)
	stored := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	assessment := GapCheckAssessment{
		Title:          meta.title,
		Artist:         meta.artist,
		SetName:        item.SetName,
		MatchScore:     stored.MatchScore,
		ReportPath:     stored.ReportPath,
		ReviewRequired: item.NeedsReview,
		ReviewReason:   strings.TrimSpace(item.ReviewReason),
	}
	if assessment.Title == "Unknown" && strings.TrimSpace(item.Title) != "" {
		assessment.Title = item.Title
	}

	switch {
	case item.Status == queue.StatusCompleted && assessment.ReportPath != "":
		assessment.Outcome = "success"
		assessment.OutcomeMessage = fmt.Sprintf("Gap report written to %s (match %.0f/100).", assessment.ReportPath, assessment.MatchScore)
	case item.Status == queue.StatusCompleted:
		assessment.Outcome = "success"
		assessment.OutcomeMessage = "Track filed in the library."
	case assessment.ReviewRequired:
		assessment.Outcome = "review"
		assessment.OutcomeMessage = "Needs review: " + assessment.ReviewReason
	default:
		assessment.Outcome = "failed"
		assessment.OutcomeMessage = "Gap check failed. Check the logs above for details."
	}

	return assessment
}
