package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"soundcheck/internal/config"
	"soundcheck/internal/fingerprint"
	"soundcheck/internal/ingest"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/media/ffprobe"
	"soundcheck/internal/media/pcm"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
	"soundcheck/internal/services"
	"soundcheck/internal/stage"
)

// fingerprintSeconds bounds the decoded head used for duplicate detection.
// Constellation hashes from the first 90 seconds are plenty to match a
// re-submission of the same recording.
const fingerprintSeconds = 90

// nearDupOverlap is the signature overlap ratio above which a new source is
// treated as a near-duplicate of an existing library track.
const nearDupOverlap = 0.25

// Downloader is the remote acquisition surface the fetcher needs from the
// ingest client.
type Downloader interface {
	Info(ctx context.Context, sourceURL string) (*ingest.Metadata, error)
	Download(ctx context.Context, sourceURL, destDir string, progress func(ingest.ProgressUpdate)) (*ingest.DownloadResult, error)
}

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)
type decodeFunc func(ctx context.Context, binary, path string, opts pcm.DecodeOptions) (*pcm.Buffer, error)

// Fetcher acquires audio sources for queue items.
type Fetcher struct {
	cfg      *config.Config
	store    *queue.Store
	lib      *library.Store
	logger   *slog.Logger
	client   Downloader
	notifier notifications.Service
	probe    probeFunc
	decode   decodeFunc
}

// New constructs the fetch handler using default dependencies.
func New(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger) *Fetcher {
	return NewWithDependencies(cfg, store, lib, logger, ingest.NewClient(cfg), notifications.NewService(cfg))
}

// NewWithDependencies allows injecting all collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, client Downloader, notifier notifications.Service) *Fetcher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "fetcher"))
	}
	return &Fetcher{
		cfg:      cfg,
		store:    store,
		lib:      lib,
		logger:   stageLogger,
		client:   client,
		notifier: notifier,
		probe:    ffprobe.Inspect,
		decode:   pcm.Decode,
	}
}

// SetLogger swaps the stage logger; the workflow manager injects a scoped one per item.
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

func (f *Fetcher) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	item.InitProgress("Fetching", "Resolving source")
	logger.Info("starting fetch",
		logging.String("source_url", strings.TrimSpace(item.SourceURL)),
		logging.String("source_path", strings.TrimSpace(item.SourcePath)),
	)
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	destDir := stage.ItemStagingDir(f.cfg, item)

	var audioPath string
	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	meta.Reference = item.Kind == queue.KindReference

	if strings.TrimSpace(item.SourceURL) != "" {
		path, err := f.fetchRemote(ctx, logger, item, destDir, &meta)
		if err != nil || item.Status == queue.StatusReview {
			return err
		}
		audioPath = path
	} else {
		path, err := ingest.ImportFile(ctx, item.SourcePath, destDir)
		if err != nil {
			return err
		}
		audioPath = path
		logger.Info("imported local file", logging.String("audio_path", audioPath))
	}

	probed, err := f.probe(ctx, f.cfg.FFprobeBinary(), audioPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fetch", "probe",
			"ffprobe could not inspect the staged audio", err)
	}
	if probed.AudioStreamCount() == 0 {
		stage.MarkReview(item, "Source has no audio stream")
		f.notifyReview(ctx, logger, item)
		return nil
	}
	if meta.DurationSeconds == 0 {
		meta.DurationSeconds = probed.DurationSeconds()
	}
	if tooLong, limit := f.exceedsMaxDuration(meta.DurationSeconds); tooLong {
		stage.MarkReview(item, fmt.Sprintf("Source runs %.0fs, above the %ds limit", meta.DurationSeconds, limit))
		f.notifyReview(ctx, logger, item)
		return nil
	}

	item.SetProgress("Fetching", "Fingerprinting audio", 90)
	if err := f.store.UpdateProgress(ctx, item); err != nil {
		logger.Warn("failed to persist progress", logging.Error(err))
	}

	sig, digest, err := f.fingerprintHead(ctx, audioPath)
	if err != nil {
		return err
	}
	if reviewed, err := f.checkDuplicates(ctx, logger, item, sig, digest); err != nil || reviewed {
		return err
	}

	if title := strings.TrimSpace(meta.TitleValue); title != "" && strings.TrimSpace(item.Title) == "" {
		item.Title = title
	}
	if artist := strings.TrimSpace(meta.ArtistValue); artist != "" && strings.TrimSpace(item.Artist) == "" {
		item.Artist = artist
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return services.Wrap(services.ErrValidation, "fetch", "metadata", "Cannot encode source metadata", err)
	}
	item.MetadataJSON = string(encoded)
	item.AudioPath = audioPath
	item.Fingerprint = digest
	item.SetProgressComplete("Fetched", "Audio staged")

	logger.Info("fetch completed",
		logging.String("audio_path", audioPath),
		logging.String("fingerprint", digest),
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.Int("sample_rate", probed.SampleRate()),
	)
	if f.notifier != nil {
		if err := f.notifier.Publish(ctx, notifications.EventFetchCompleted, notifications.Payload{
			"title":  item.Title,
			"artist": item.Artist,
		}); err != nil {
			logger.Warn("fetch completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, logger *slog.Logger, item *queue.Item, destDir string, meta *queue.Metadata) (string, error) {
	canonical, videoID := ingest.NormalizeURL(item.SourceURL)
	if canonical != item.SourceURL {
		logger.Debug("normalized source URL",
			logging.String("canonical", canonical),
			logging.String("video_id", videoID),
		)
		item.SourceURL = canonical
	}

	info, err := f.client.Info(ctx, canonical)
	if err != nil {
		return "", err
	}
	if tooLong, limit := f.exceedsMaxDuration(info.DurationSeconds); tooLong {
		stage.MarkReview(item, fmt.Sprintf("Source runs %.0fs, above the %ds limit", info.DurationSeconds, limit))
		f.notifyReview(ctx, logger, item)
		return "", nil
	}

	result, err := f.client.Download(ctx, canonical, destDir, func(update ingest.ProgressUpdate) {
		copy := *item
		// Download occupies the first 80% of the fetch stage.
		copy.SetProgress("Fetching", update.Message, update.Percent*0.8)
		if err := f.store.UpdateProgress(ctx, &copy); err != nil {
			logger.Debug("failed to persist download progress", logging.Error(err))
			return
		}
		*item = copy
	})
	if err != nil {
		return "", err
	}

	downloaded := result.Metadata
	if downloaded.ID == "" && info != nil {
		downloaded = *info
	}
	meta.TitleValue = downloaded.Title
	meta.ArtistValue = downloaded.BestArtist()
	meta.Uploader = downloaded.Uploader
	meta.DurationSeconds = downloaded.DurationSeconds
	meta.UploadDate = downloaded.UploadDate
	meta.WebpageURL = downloaded.WebpageURL
	if meta.FilenameValue == "" {
		meta.FilenameValue = downloaded.Title
	}
	logger.Info("download completed",
		logging.String("audio_path", result.AudioPath),
		logging.String("video_id", videoID),
	)
	return result.AudioPath, nil
}

func (f *Fetcher) fingerprintHead(ctx context.Context, audioPath string) (fingerprint.Signature, string, error) {
	buf, err := f.decode(ctx, f.cfg.FFmpegBinary(), audioPath, pcm.DecodeOptions{
		TargetRate: f.cfg.Analysis.SampleRate,
		MaxSeconds: fingerprintSeconds,
	})
	if err != nil {
		return nil, "", err
	}
	sig := fingerprint.Compute(buf)
	return sig, sig.Digest(), nil
}

func (f *Fetcher) checkDuplicates(ctx context.Context, logger *slog.Logger, item *queue.Item, sig fingerprint.Signature, digest string) (bool, error) {
	existing, err := f.lib.TrackByFingerprint(ctx, digest)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "fetch", "dedup", "Library lookup failed", err)
	}
	if existing != nil {
		stage.MarkReview(item, fmt.Sprintf("Duplicate of library track #%d (%s)", existing.ID, existing.DisplayTitle()))
		f.notifyReview(ctx, logger, item)
		return true, nil
	}

	stored, err := f.lib.Signatures(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "fetch", "dedup", "Signature scan failed", err)
	}
	for trackID, other := range stored {
		overlap := fingerprint.Overlap(sig, other)
		if overlap < nearDupOverlap {
			continue
		}
		logger.Info("near-duplicate detected",
			logging.Int64(logging.FieldTrackID, trackID),
			logging.Float64("overlap", overlap),
		)
		stage.MarkReview(item, fmt.Sprintf("Near-duplicate of library track #%d (%.0f%% hash overlap)", trackID, overlap*100))
		f.notifyReview(ctx, logger, item)
		return true, nil
	}
	return false, nil
}

func (f *Fetcher) exceedsMaxDuration(durationSeconds float64) (bool, int) {
	limit := f.cfg.Ingest.MaxDurationSeconds
	if limit <= 0 || durationSeconds <= 0 {
		return false, limit
	}
	return durationSeconds > float64(limit), limit
}

func (f *Fetcher) notifyReview(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.Publish(ctx, notifications.EventReviewRequired, notifications.Payload{
		"title":  item.DisplayTitle(),
		"reason": item.ReviewReason,
	}); err != nil {
		logger.Warn("review notification failed", logging.Error(err))
	}
}

// HealthCheck verifies the acquisition dependencies.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetcher"
	if f.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(f.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if f.client == nil {
		return stage.Unhealthy(name, "download client unavailable")
	}
	for _, binary := range []string{f.cfg.YtDlpBinary(), f.cfg.FFprobeBinary(), f.cfg.FFmpegBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}
