package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"soundcheck/internal/config"
	"soundcheck/internal/gap"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profile"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
	"soundcheck/internal/stage"
)

// Reporter produces the gap report that closes out a candidate item.
type Reporter struct {
	cfg      *config.Config
	store    *queue.Store
	lib      *library.Store
	logger   *slog.Logger
	notifier notifications.Service
}

// New constructs the reporting handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger) *Reporter {
	return NewWithDependencies(cfg, store, lib, logger, notifications.NewService(cfg))
}

// NewWithDependencies allows injecting the notifier (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, notifier notifications.Service) *Reporter {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "reporter"))
	}
	return &Reporter{
		cfg:      cfg,
		store:    store,
		lib:      lib,
		logger:   stageLogger,
		notifier: notifier,
	}
}

// SetLogger swaps the stage logger; the workflow manager injects a scoped one per item.
func (r *Reporter) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Reporter) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	item.InitProgress("Reporting", "Preparing gap report")
	logger.Info("starting report", logging.Int64(logging.FieldTrackID, item.TrackID))
	return nil
}

func (r *Reporter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)

	if item.Kind == queue.KindReference {
		item.SetProgressComplete("Completed", fmt.Sprintf("Reference filed in set %q", item.SetName))
		return nil
	}

	if item.TrackID == 0 {
		return services.Wrap(services.ErrValidation, "report", "validate",
			"Item has no analyzed track to report on", nil)
	}
	track, err := r.lib.TrackByID(ctx, item.TrackID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "lookup", "Track lookup failed", err)
	}
	if track == nil {
		return services.Wrap(services.ErrNotFound, "report", "lookup",
			fmt.Sprintf("Track #%d is gone from the library", item.TrackID), nil)
	}
	features, err := r.lib.FeaturesByTrack(ctx, item.TrackID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "lookup", "Feature lookup failed", err)
	}
	if features == nil {
		return services.Wrap(services.ErrNotFound, "report", "lookup",
			fmt.Sprintf("Track #%d has no current features", item.TrackID), nil)
	}

	prof, err := r.loadProfile(ctx, item)
	if err != nil || item.Status == queue.StatusReview {
		return err
	}

	item.SetProgress("Reporting", "Comparing against reference profile", 40)
	if err := r.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	report, err := gap.Analyze(prof, track, features, gap.Options{
		TopRecommendations: r.cfg.Profile.TopRecommendations,
	})
	if err != nil {
		return err
	}

	jsonPath, markdownPath, err := report.WriteFiles(r.cfg.Paths.ReportsDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "report", "write", "Cannot write report files", err)
	}

	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	meta.ReportPath = jsonPath
	meta.MatchScore = report.MatchScore
	if err := queue.PersistMetadata(ctx, r.store, item, metadataEncoder{meta}); err != nil {
		logger.Warn("failed to persist report metadata", logging.Error(err))
	}

	item.SetProgressComplete("Completed", fmt.Sprintf("Gap report written, match %.0f/100", report.MatchScore))
	logger.Info("report completed",
		logging.Int64(logging.FieldTrackID, track.ID),
		logging.String(logging.FieldSetName, report.SetName),
		logging.Float64("match_score", report.MatchScore),
		logging.String("report_json", jsonPath),
		logging.String("report_markdown", markdownPath),
	)
	if r.notifier != nil {
		if err := r.notifier.Publish(ctx, notifications.EventReportReady, notifications.Payload{
			"title":  item.Title,
			"artist": item.Artist,
			"set":    report.SetName,
			"score":  report.MatchScore,
		}); err != nil {
			logger.Warn("report notification failed", logging.Error(err))
		}
	}
	return nil
}

// loadProfile resolves the decoded profile the candidate should be compared
// against. A missing set or profile routes the item to review; the profiler
// stage normally guarantees both exist.
func (r *Reporter) loadProfile(ctx context.Context, item *queue.Item) (*profile.Profile, error) {
	setName := strings.TrimSpace(item.SetName)
	if setName == "" {
		stage.MarkReview(item, "Candidate has no target reference set")
		return nil, nil
	}
	set, err := r.lib.SetByName(ctx, setName)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "report", "lookup", "Reference set lookup failed", err)
	}
	if set == nil {
		stage.MarkReview(item, fmt.Sprintf("Reference set %q does not exist", setName))
		return nil, nil
	}
	record, err := r.lib.LatestProfile(ctx, set.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "report", "lookup", "Profile lookup failed", err)
	}
	if record == nil {
		stage.MarkReview(item, fmt.Sprintf("Reference set %q has no profile", setName))
		return nil, nil
	}
	prof, err := profile.Decode(record.Payload)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "report", "decode", "Stored profile is unreadable", err)
	}
	return prof, nil
}

type metadataEncoder struct {
	meta queue.Metadata
}

func (e metadataEncoder) Encode() (string, error) {
	raw, err := json.Marshal(e.meta)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// HealthCheck verifies the reporting dependencies.
func (r *Reporter) HealthCheck(ctx context.Context) stage.Health {
	const name = "reporter"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.cfg.Paths.ReportsDir) == "" {
		return stage.Unhealthy(name, "reports directory not configured")
	}
	if r.lib == nil {
		return stage.Unhealthy(name, "library store unavailable")
	}
	return stage.Healthy(name)
}
