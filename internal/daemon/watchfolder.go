package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"soundcheck/internal/config"
	"soundcheck/internal/ingest"
	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
)

// pendingFile tracks a file observed in the watch folder until its size
// stops changing, so partially copied files are not enqueued.
type pendingFile struct {
	size     int64
	lastSeen time.Time
}

// Watchfolder observes a drop directory and enqueues settled audio files.
type Watchfolder struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	dir    string
	settle time.Duration

	mu      sync.Mutex
	pending map[string]pendingFile

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatchfolder configures a watch folder monitor. The directory must exist
// before Start is called; config.EnsureDirectories creates it.
func NewWatchfolder(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Watchfolder, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("watch folder requires config and queue store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	dir := cfg.Watch.Dir
	if dir == "" {
		return nil, errors.New("watch folder directory is not configured")
	}
	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	if settle <= 0 {
		settle = 5 * time.Second
	}
	return &Watchfolder{
		cfg:     cfg,
		store:   store,
		logger:  logger.With(logging.String("component", "watchfolder")),
		dir:     dir,
		settle:  settle,
		pending: make(map[string]pendingFile),
	}, nil
}

// Start begins watching the drop directory. Files already present are
// picked up on the first settle pass.
func (w *Watchfolder) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = watcher

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.scanExisting()

	w.wg.Add(2)
	go w.watchLoop(runCtx)
	go w.settleLoop(runCtx)

	w.logger.Info("watch folder active",
		logging.String("dir", w.dir),
		logging.String("settle", w.settle.String()))
	return nil
}

// Stop shuts the watcher down and waits for in-flight work.
func (w *Watchfolder) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	w.wg.Wait()
}

// Pending reports how many files are waiting for their size to settle.
func (w *Watchfolder) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watchfolder) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("cannot scan watch folder", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.observe(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watchfolder) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.observe(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch folder error", logging.Error(err))
		}
	}
}

func (w *Watchfolder) settleLoop(ctx context.Context) {
	defer w.wg.Done()
	interval := w.settle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watchfolder) observe(path string) {
	if !ingest.SupportedExtension(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, seen := w.pending[path]
	if !seen || entry.size != info.Size() {
		w.pending[path] = pendingFile{size: info.Size(), lastSeen: time.Now()}
	}
}

func (w *Watchfolder) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
}

// sweep enqueues files whose size has been stable for the settle window.
func (w *Watchfolder) sweep(ctx context.Context) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, entry := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != entry.size {
			w.pending[path] = pendingFile{size: info.Size(), lastSeen: now}
			continue
		}
		if now.Sub(entry.lastSeen) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.enqueue(ctx, path)
	}
}

func (w *Watchfolder) enqueue(ctx context.Context, path string) {
	item, created, err := w.store.NewFile(ctx, queue.KindCandidate, path, w.cfg.Watch.DefaultSet)
	if err != nil {
		w.logger.Error("failed to enqueue watched file",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	if !created {
		w.logger.Debug("watched file already queued",
			logging.String("path", path),
			logging.Int64(logging.FieldItemID, item.ID))
		return
	}
	w.logger.Info("watched file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("path", path),
		logging.String("set", w.cfg.Watch.DefaultSet))
}
