package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"soundcheck/internal/analysis"
	"soundcheck/internal/config"
	"soundcheck/internal/fileutil"
	"soundcheck/internal/fingerprint"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/media/ffprobe"
	"soundcheck/internal/media/pcm"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
	"soundcheck/internal/stage"
)

// Library subdirectories for filed audio, split by item kind.
const (
	referenceDirName = "references"
	candidateDirName = "candidates"
)

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)
type decodeFunc func(ctx context.Context, binary, path string, opts pcm.DecodeOptions) (*pcm.Buffer, error)

// Analyzer runs feature extraction over fetched audio and persists the
// resulting track into the library.
type Analyzer struct {
	cfg      *config.Config
	store    *queue.Store
	lib      *library.Store
	logger   *slog.Logger
	engine   *analysis.Analyzer
	notifier notifications.Service
	probe    probeFunc
	decode   decodeFunc
}

// New constructs the analysis handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger) *Analyzer {
	return NewWithDependencies(cfg, store, lib, logger, notifications.NewService(cfg))
}

// NewWithDependencies allows injecting the notifier (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, notifier notifications.Service) *Analyzer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "analyzer"))
	}
	return &Analyzer{
		cfg:      cfg,
		store:    store,
		lib:      lib,
		logger:   stageLogger,
		engine:   analysis.New(cfg, stageLogger),
		notifier: notifier,
		probe:    ffprobe.Inspect,
		decode:   pcm.Decode,
	}
}

// SetLogger swaps the stage logger; the workflow manager injects a scoped one per item.
func (a *Analyzer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	a.logger = logger
	a.engine.SetLogger(logger)
}

func (a *Analyzer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)
	item.InitProgress("Analyzing", "Preparing audio")
	logger.Info("starting analysis", logging.String("audio_path", item.AudioPath))
	return nil
}

func (a *Analyzer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)

	audioPath := strings.TrimSpace(item.AudioPath)
	if audioPath == "" {
		return services.Wrap(services.ErrValidation, "analysis", "validate",
			"Item has no staged audio to analyze", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrNotFound, "analysis", "validate",
			fmt.Sprintf("Staged audio missing at %s", audioPath), err)
	}

	probed, err := a.probe(ctx, a.cfg.FFprobeBinary(), audioPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "analysis", "probe",
			"ffprobe could not inspect the staged audio", err)
	}

	item.SetProgress("Analyzing", "Decoding audio", 10)
	if err := a.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	buf, err := a.decode(ctx, a.cfg.FFmpegBinary(), audioPath, pcm.DecodeOptions{
		TargetRate: a.cfg.Analysis.SampleRate,
		MaxSeconds: a.cfg.Analysis.MaxAnalysisSeconds,
	})
	if err != nil {
		return err
	}

	item.SetProgress("Analyzing", "Extracting features", 35)
	if err := a.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	analysisCtx := ctx
	if a.cfg.Analysis.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		analysisCtx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Analysis.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	features, err := a.engine.Analyze(analysisCtx, buf)
	if err != nil {
		if analysisCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "analysis", "extract",
				fmt.Sprintf("Analysis exceeded the %ds budget", a.cfg.Analysis.TimeoutSeconds), err)
		}
		return err
	}
	features.Signature = fingerprint.Compute(buf)

	item.SetProgress("Analyzing", "Filing track in library", 85)
	if err := a.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	meta.Reference = item.Kind == queue.KindReference
	libraryPath, err := a.fileAudio(audioPath, meta)
	if err != nil {
		return err
	}
	item.AudioPath = libraryPath

	track := &library.Track{
		Fingerprint:     item.Fingerprint,
		Title:           item.Title,
		Artist:          item.Artist,
		Kind:            library.Kind(item.Kind),
		SourceURL:       item.SourceURL,
		SourcePath:      item.SourcePath,
		LibraryPath:     libraryPath,
		DurationSeconds: probed.DurationSeconds(),
		SampleRate:      probed.SampleRate(),
		Channels:        probed.ChannelCount(),
		Format:          probed.Codec(),
		Bitrate:         probed.BitRate(),
	}
	if err := a.lib.SaveTrack(ctx, track); err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "persist", "Cannot save track", err)
	}
	features.TrackID = track.ID
	if err := a.lib.SaveFeatures(ctx, features); err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "persist", "Cannot save features", err)
	}
	item.TrackID = track.ID

	if item.Kind == queue.KindReference {
		if err := a.attachToSet(ctx, logger, item, track); err != nil {
			return err
		}
	}

	item.SetProgressComplete("Analyzed", "Features extracted")
	logger.Info("analysis completed",
		logging.Int64(logging.FieldTrackID, track.ID),
		logging.Float64("bpm", features.BPM),
		logging.String("key", features.KeyName),
		logging.Float64("integrated_lufs", features.IntegratedLUFS),
	)
	if a.notifier != nil {
		if err := a.notifier.Publish(ctx, notifications.EventAnalysisCompleted, notifications.Payload{
			"title":  item.Title,
			"artist": item.Artist,
		}); err != nil {
			logger.Warn("analysis notification failed", logging.Error(err))
		}
	}
	return nil
}

// fileAudio moves staged audio under the library root, falling back to a
// verified copy when the staging and library directories sit on different
// filesystems.
func (a *Analyzer) fileAudio(audioPath string, meta queue.Metadata) (string, error) {
	destDir := meta.GetLibraryPath(a.cfg.Paths.LibraryDir, referenceDirName, candidateDirName)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "analysis", "file",
			fmt.Sprintf("Cannot create library directory %s", destDir), err)
	}
	destPath := filepath.Join(destDir, filepath.Base(audioPath))
	if destPath == audioPath {
		return destPath, nil
	}
	if err := os.Rename(audioPath, destPath); err != nil {
		if copyErr := fileutil.CopyFileVerified(audioPath, destPath); copyErr != nil {
			return "", services.Wrap(services.ErrTransient, "analysis", "file",
				fmt.Sprintf("Cannot move audio into library: %s", destPath), copyErr)
		}
		_ = os.Remove(audioPath)
	}
	return destPath, nil
}

func (a *Analyzer) attachToSet(ctx context.Context, logger *slog.Logger, item *queue.Item, track *library.Track) error {
	setName := strings.TrimSpace(item.SetName)
	if setName == "" {
		logger.Warn("reference track has no target set", logging.Int64(logging.FieldTrackID, track.ID))
		return nil
	}
	set, err := a.lib.CreateSet(ctx, setName, "", "")
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "persist",
			fmt.Sprintf("Cannot resolve reference set %q", setName), err)
	}
	if err := a.lib.AddTrackToSet(ctx, set.ID, track.ID); err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "persist",
			fmt.Sprintf("Cannot add track to set %q", setName), err)
	}
	logger.Info("track attached to set",
		logging.String(logging.FieldSetName, setName),
		logging.Int64(logging.FieldTrackID, track.ID),
	)
	return nil
}

// HealthCheck verifies the decode dependencies.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyzer"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if a.lib == nil {
		return stage.Unhealthy(name, "library store unavailable")
	}
	for _, binary := range []string{a.cfg.FFmpegBinary(), a.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}
