package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"soundcheck/internal/config"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profile"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
	"soundcheck/internal/stage"
)

// Profiler keeps reference-set profiles in step with the library.
type Profiler struct {
	cfg      *config.Config
	store    *queue.Store
	lib      *library.Store
	logger   *slog.Logger
	builder  *profile.Builder
	notifier notifications.Service
}

// New constructs the profiling handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger) *Profiler {
	return NewWithDependencies(cfg, store, lib, logger, notifications.NewService(cfg))
}

// NewWithDependencies allows injecting the notifier (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, notifier notifications.Service) *Profiler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "profiler"))
	}
	return &Profiler{
		cfg:      cfg,
		store:    store,
		lib:      lib,
		logger:   stageLogger,
		builder:  profile.NewBuilder(cfg, stageLogger),
		notifier: notifier,
	}
}

// SetLogger swaps the stage logger; the workflow manager injects a scoped one per item.
func (p *Profiler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *Profiler) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)
	item.InitProgress("Profiling", "Checking reference profile")
	logger.Info("starting profiling", logging.String(logging.FieldSetName, item.SetName))
	return nil
}

func (p *Profiler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)

	if item.Kind == queue.KindReference {
		return p.updateReferenceProfile(ctx, logger, item)
	}
	return p.ensureCandidateProfile(ctx, logger, item)
}

// updateReferenceProfile rebuilds the profile of the set the new reference
// track joined. Below the configured minimum the membership stands and the
// rebuild waits for more tracks.
func (p *Profiler) updateReferenceProfile(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	setName := strings.TrimSpace(item.SetName)
	if setName == "" {
		item.SetProgressComplete("Profiled", "No reference set to update")
		return nil
	}

	set, features, err := p.setFeatures(ctx, setName)
	if err != nil {
		return err
	}
	if len(features) < p.cfg.Profile.MinTracks {
		logger.Info("profile deferred",
			logging.String(logging.FieldSetName, setName),
			logging.Int("analyzed_tracks", len(features)),
			logging.Int("min_tracks", p.cfg.Profile.MinTracks),
		)
		item.ProfileName = setName
		item.SetProgressComplete("Profiled",
			fmt.Sprintf("Profile deferred: %d of %d tracks analyzed", len(features), p.cfg.Profile.MinTracks))
		return nil
	}

	item.SetProgress("Profiling", "Rebuilding set profile", 40)
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	prof, err := p.rebuild(ctx, set, setName, features)
	if err != nil {
		return err
	}

	item.ProfileName = setName
	item.SetProgressComplete("Profiled", fmt.Sprintf("Profile rebuilt from %d tracks", prof.TrackCount))
	logger.Info("profile updated",
		logging.String(logging.FieldSetName, setName),
		logging.Int("track_count", prof.TrackCount),
		logging.Int("clusters", len(prof.Clusters)),
	)
	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, notifications.EventProfileUpdated, notifications.Payload{
			"set":        setName,
			"trackCount": prof.TrackCount,
		}); err != nil {
			logger.Warn("profile notification failed", logging.Error(err))
		}
	}
	return nil
}

// ensureCandidateProfile guarantees the gap report has a current profile to
// compare against, rebuilding a missing or stale snapshot when the set has
// enough analyzed tracks.
func (p *Profiler) ensureCandidateProfile(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	setName := strings.TrimSpace(item.SetName)
	if setName == "" {
		stage.MarkReview(item, "Candidate has no target reference set")
		return nil
	}

	set, err := p.lib.SetByName(ctx, setName)
	if err != nil {
		return services.Wrap(services.ErrTransient, "profile", "lookup", "Reference set lookup failed", err)
	}
	if set == nil {
		stage.MarkReview(item, fmt.Sprintf("Reference set %q does not exist", setName))
		return nil
	}

	record, err := p.lib.LatestProfile(ctx, set.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "profile", "lookup", "Profile lookup failed", err)
	}
	if record != nil {
		if prof, err := profile.Decode(record.Payload); err == nil && prof.SchemaVersion == profile.SchemaVersion {
			item.ProfileName = setName
			item.SetProgressComplete("Profiled", "Reference profile is current")
			return nil
		}
		logger.Info("stored profile is stale, rebuilding", logging.String(logging.FieldSetName, setName))
	}

	features, err := p.lib.FeaturesForSet(ctx, set.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "profile", "lookup", "Set feature scan failed", err)
	}
	if len(features) < p.cfg.Profile.MinTracks {
		stage.MarkReview(item, fmt.Sprintf("Reference set %q is not profiled yet: %d of %d tracks analyzed",
			setName, len(features), p.cfg.Profile.MinTracks))
		return nil
	}

	item.SetProgress("Profiling", "Building missing set profile", 40)
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}
	if _, err := p.rebuild(ctx, set, setName, features); err != nil {
		return err
	}

	item.ProfileName = setName
	item.SetProgressComplete("Profiled", "Reference profile built")
	return nil
}

func (p *Profiler) setFeatures(ctx context.Context, setName string) (*library.ReferenceSet, []*library.Features, error) {
	set, err := p.lib.SetByName(ctx, setName)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "profile", "lookup", "Reference set lookup failed", err)
	}
	if set == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "profile", "lookup",
			fmt.Sprintf("Reference set %q does not exist", setName), nil)
	}
	features, err := p.lib.FeaturesForSet(ctx, set.ID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "profile", "lookup", "Set feature scan failed", err)
	}
	return set, features, nil
}

func (p *Profiler) rebuild(ctx context.Context, set *library.ReferenceSet, setName string, features []*library.Features) (*profile.Profile, error) {
	prof, err := p.builder.Build(ctx, setName, features)
	if err != nil {
		return nil, err
	}
	payload, err := prof.Encode()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "profile", "encode", "Cannot encode profile", err)
	}
	if err := p.lib.SaveProfile(ctx, &library.ProfileRecord{
		SetID:      set.ID,
		BuiltAt:    prof.BuiltAt,
		TrackCount: prof.TrackCount,
		Payload:    payload,
	}); err != nil {
		return nil, services.Wrap(services.ErrTransient, "profile", "persist", "Cannot save profile", err)
	}
	return prof, nil
}

// HealthCheck verifies the profiling dependencies.
func (p *Profiler) HealthCheck(ctx context.Context) stage.Health {
	const name = "profiler"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if p.lib == nil {
		return stage.Unhealthy(name, "library store unavailable")
	}
	if p.cfg.Profile.MinTracks < 2 {
		return stage.Unhealthy(name, "profile.min_tracks must be at least 2")
	}
	return stage.Healthy(name)
}
