package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"soundcheck/internal/config"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
)

// Manager drives queue items through the pipeline. Each lane polls for items
// in its statuses and hands them to the registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service

	heartbeat *HeartbeatMonitor
	bgLogger  *BackgroundLogger

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	diagnosticMode    bool
	diagnosticItemDir string
	sessionID         string
}

// WithDiagnosticMode routes per-item DEBUG output into separate diagnostic
// log files under itemDir.
func WithDiagnosticMode(enabled bool, itemDir, sessionID string) ManagerOption {
	return func(o *managerOptions) {
		o.diagnosticMode = enabled
		o.diagnosticItemDir = itemDir
		o.sessionID = sessionID
	}
}

// NewManager builds a manager with the default ntfy-backed notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifications.NewService(cfg), nil)
}

// NewManagerWithNotifier substitutes the notifier, which tests use to capture
// notifications instead of sending them.
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifier, nil)
}

// NewManagerWithOptions is the full constructor used by the daemon.
func NewManagerWithOptions(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, logHub *logging.StreamHub, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
			cfg.Workflow.MaxRetries,
		),
		bgLogger: NewBackgroundLogger(cfg, logHub, options.diagnosticMode, options.diagnosticItemDir, options.sessionID),
		lanes:    make(map[laneKind]*laneState),
	}
}
