package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"soundcheck/internal/api"
	"soundcheck/internal/config"
	"soundcheck/internal/deps"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profile"
	"soundcheck/internal/queue"
	"soundcheck/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	lib      *library.Store
	workflow *workflow.Manager
	watcher  *Watchfolder
	apiSrv   *apiServer
	logPath  string
	logHub   *logging.StreamHub
	archive  *logging.EventArchive

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Workflow      workflow.StatusSummary
	QueueDBPath   string
	LibraryDBPath string
	LockFilePath  string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies. The log hub and
// archive are optional; when absent the /api/logs endpoint serves nothing.
func New(cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, wf *workflow.Manager, logPath string, hub *logging.StreamHub, archive *logging.EventArchive) (*Daemon, error) {
	if cfg == nil || store == nil || lib == nil || wf == nil {
		return nil, errors.New("daemon requires config, stores, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if logPath == "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "soundcheck.log")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "soundcheckd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lib:      lib,
		workflow: wf,
		logPath:  logPath,
		logHub:   hub,
		archive:  archive,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Watch.Enabled {
		watcher, err := NewWatchfolder(cfg, store, logger)
		if err != nil {
			return nil, fmt.Errorf("configure watch folder: %w", err)
		}
		d.watcher = watcher
	}
	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("configure api server: %w", err)
	}
	d.apiSrv = apiSrv
	return d, nil
}

// LogStream returns the in-memory log event hub, if attached.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// LogArchive returns the on-disk log event archive, if attached.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.archive
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soundcheck daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			d.workflow.Stop()
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return fmt.Errorf("start watch folder: %w", err)
		}
	}
	if d.apiSrv != nil {
		if err := d.apiSrv.start(d.ctx); err != nil {
			d.logger.Warn("api server failed to start", logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("soundcheck daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.apiSrv != nil {
		d.apiSrv.stop()
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("soundcheck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.store != nil {
		firstErr = d.store.Close()
	}
	if d.lib != nil {
		if err := d.lib.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueItem fetches a single queue item by ID.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// RemoveQueueItems removes specific queue items by ID.
func (d *Daemon) RemoveQueueItems(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := d.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

// ResetStuck rolls in-flight items back to their previous checkpoint.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed and review items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// StopQueueItems marks in-flight items as failed with a stop message.
func (d *Daemon) StopQueueItems(ctx context.Context, ids []int64) (int64, error) {
	return d.store.StopItems(ctx, ids...)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// AddSource enqueues a URL or local audio file for processing.
func (d *Daemon) AddSource(ctx context.Context, source string, kind queue.Kind, setName string) (*queue.Item, bool, error) {
	if kind == "" {
		kind = queue.KindCandidate
	}
	result, err := api.EnqueueSource(ctx, api.EnqueueSourceRequest{
		Store:   d.store,
		Kind:    kind,
		Source:  source,
		SetName: setName,
	})
	if err != nil {
		return nil, false, err
	}
	if result.Created {
		d.logger.Info("source queued",
			logging.Int64(logging.FieldItemID, result.Item.ID),
			logging.String("kind", string(kind)),
			logging.String("source", source))
	}
	return result.Item, result.Created, nil
}

// ListTracks returns library tracks filtered by kind and set membership.
func (d *Daemon) ListTracks(ctx context.Context, kind library.Kind, setName string, limit int) ([]*library.Track, error) {
	return d.lib.ListTracks(ctx, kind, setName, limit)
}

// GetTrack fetches a single library track by ID.
func (d *Daemon) GetTrack(ctx context.Context, id int64) (*library.Track, error) {
	return d.lib.TrackByID(ctx, id)
}

// SimilarTracks ranks library tracks by signature similarity to the given track.
func (d *Daemon) SimilarTracks(ctx context.Context, trackID int64, limit int) ([]library.SimilarTrack, error) {
	return d.lib.SimilarTracks(ctx, trackID, limit)
}

// ListSets returns all reference sets.
func (d *Daemon) ListSets(ctx context.Context) ([]*library.ReferenceSet, error) {
	return d.lib.ListSets(ctx)
}

// SetDetails returns the set plus its track count and latest profile.
func (d *Daemon) SetDetails(ctx context.Context, set *library.ReferenceSet) (int, *library.ProfileRecord, error) {
	count, err := d.lib.SetTrackCount(ctx, set.ID)
	if err != nil {
		return 0, nil, err
	}
	record, err := d.lib.LatestProfile(ctx, set.ID)
	if err != nil {
		return count, nil, err
	}
	return count, record, nil
}

// CreateSet registers a new reference set.
func (d *Daemon) CreateSet(ctx context.Context, name, description, genre string) (*library.ReferenceSet, error) {
	return d.lib.CreateSet(ctx, name, description, genre)
}

// RemoveSet deletes a reference set and its memberships.
func (d *Daemon) RemoveSet(ctx context.Context, name string) (bool, error) {
	set, err := d.lib.SetByName(ctx, name)
	if err != nil {
		return false, err
	}
	if set == nil {
		return false, nil
	}
	if err := d.lib.DeleteSet(ctx, set.ID); err != nil {
		return false, err
	}
	return true, nil
}

// LatestProfile returns the newest stored profile for the named set.
func (d *Daemon) LatestProfile(ctx context.Context, setName string) (*library.ReferenceSet, *library.ProfileRecord, error) {
	set, err := d.lib.SetByName(ctx, setName)
	if err != nil {
		return nil, nil, err
	}
	if set == nil {
		return nil, nil, fmt.Errorf("reference set %q does not exist", setName)
	}
	record, err := d.lib.LatestProfile(ctx, set.ID)
	if err != nil {
		return set, nil, err
	}
	return set, record, nil
}

// BuildProfile recomputes and stores the profile for the named set.
func (d *Daemon) BuildProfile(ctx context.Context, setName string) (*library.ProfileRecord, error) {
	set, err := d.lib.SetByName(ctx, setName)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("reference set %q does not exist", setName)
	}
	features, err := d.lib.FeaturesForSet(ctx, set.ID)
	if err != nil {
		return nil, err
	}
	builder := profile.NewBuilder(d.cfg, d.logger)
	prof, err := builder.Build(ctx, setName, features)
	if err != nil {
		return nil, err
	}
	payload, err := prof.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	record := &library.ProfileRecord{
		SetID:      set.ID,
		BuiltAt:    prof.BuiltAt,
		TrackCount: prof.TrackCount,
		Payload:    payload,
	}
	if err := d.lib.SaveProfile(ctx, record); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	d.logger.Info("reference profile rebuilt",
		logging.String("set", setName),
		logging.Int("track_count", prof.TrackCount))
	return record, nil
}

// Dependencies reports availability of the external binaries the pipeline uses.
func (d *Daemon) Dependencies() []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{Name: "ffmpeg", Command: d.cfg.FFmpegBinary(), Description: "audio decoding and loudness analysis"},
		{Name: "ffprobe", Command: d.cfg.FFprobeBinary(), Description: "media inspection"},
		{Name: "yt-dlp", Command: d.cfg.YtDlpBinary(), Description: "remote source downloads", Optional: true},
	})
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Workflow:      summary,
		QueueDBPath:   d.cfg.QueueDatabasePath(),
		LibraryDBPath: d.cfg.LibraryDatabasePath(),
		LockFilePath:  d.lockPath,
		Dependencies:  d.Dependencies(),
	}
}
