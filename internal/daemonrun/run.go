// Package daemonrun wires the daemon process together: logging stack, queue
// and library stores, workflow manager, stage handlers, and the IPC server,
// then blocks until a shutdown signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"soundcheck/internal/analyzer"
	"soundcheck/internal/config"
	"soundcheck/internal/daemon"
	"soundcheck/internal/fetcher"
	"soundcheck/internal/ingest"
	"soundcheck/internal/ipc"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profiler"
	"soundcheck/internal/queue"
	"soundcheck/internal/reporter"
	"soundcheck/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	SocketPath  string
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// diagnosticPaths holds the extra output locations diagnostic mode writes to.
type diagnosticPaths struct {
	sessionID string
	logPath   string
	itemsDir  string
}

// Run starts the soundcheck daemon runtime loop and blocks until SIGINT or
// SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Each daemon run gets its own log and event files; soundcheck.log is a
	// pointer to the current run.
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("soundcheck-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("soundcheck-%s.events", runID))

	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
	}

	var diag diagnosticPaths
	if opts.Diagnostic {
		var err error
		if diag, err = prepareDiagnosticDirs(cfg.Paths.LogDir, runID); err != nil {
			return err
		}
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
		SessionID:        diag.sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if opts.Diagnostic {
		logger = attachDiagnosticLogger(logger, cfg.Paths.LogDir, diag)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update soundcheck.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "soundcheck-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "soundcheck-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "items"), Pattern: "*.log"},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "tool"), Pattern: "*.log"},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "soundcheck.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	lib, err := library.Open(cfg)
	if err != nil {
		logger.Error("open library store", logging.Error(err))
		return err
	}
	defer lib.Close()

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithOptions(cfg, store, logger, notifier, logHub,
		workflow.WithDiagnosticMode(opts.Diagnostic, diag.itemsDir, diag.sessionID))
	registerStages(workflowManager, cfg, store, lib, logger, notifier)

	d, err := daemon.New(cfg, store, lib, logger, workflowManager, logPath, logHub, eventArchive)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger, cancel)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	<-signalCtx.Done()
	logger.Info("soundcheck daemon shutting down")
	return nil
}

func prepareDiagnosticDirs(logDir, runID string) (diagnosticPaths, error) {
	debugDir := filepath.Join(logDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return diagnosticPaths{}, fmt.Errorf("create debug log directory: %w", err)
	}
	itemsDir := filepath.Join(debugDir, "items")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return diagnosticPaths{}, fmt.Errorf("create debug items directory: %w", err)
	}
	return diagnosticPaths{
		sessionID: uuid.NewString(),
		logPath:   filepath.Join(debugDir, fmt.Sprintf("soundcheck-%s.log", runID)),
		itemsDir:  itemsDir,
	}, nil
}

// attachDiagnosticLogger tees a full-debug JSON logger onto the main logger.
// Diagnostic logging is best effort; failures degrade to the main logger.
func attachDiagnosticLogger(logger *slog.Logger, logDir string, diag diagnosticPaths) *slog.Logger {
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{diag.logPath},
		ErrorOutputPaths: []string{diag.logPath},
		Development:      true,
		SessionID:        diag.sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
	} else {
		logger = logging.TeeLogger(logger, debugLogger.Handler())
		if err := ensureCurrentLogPointer(filepath.Join(logDir, "debug"), diag.logPath); err != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to update debug/soundcheck.log link: %v\n", err)
		}
	}

	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String(logging.FieldSessionID, diag.sessionID),
		logging.String("debug_log_path", diag.logPath),
	)
	return logger
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, lib *library.Store, logger *slog.Logger, notifier notifications.Service) {
	if mgr == nil || cfg == nil {
		return
	}

	mgr.ConfigureStages(workflow.StageSet{
		Fetcher:  fetcher.NewWithDependencies(cfg, store, lib, logger, ingest.NewClient(cfg), notifier),
		Analyzer: analyzer.NewWithDependencies(cfg, store, lib, logger, notifier),
		Profiler: profiler.NewWithDependencies(cfg, store, lib, logger, notifier),
		Reporter: reporter.NewWithDependencies(cfg, store, lib, logger, notifier),
	})
}

// ensureCurrentLogPointer points logDir/soundcheck.log at the current run's
// log file, preferring a symlink and falling back to a hard link.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "soundcheck.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// logDependencySnapshot records external tool availability at startup so a
// missing ffmpeg or yt-dlp shows up in the log before the first item fails.
func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	ytdlp := cfg.YtDlpBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("ytdlp_available", binaryAvailable(ytdlp)),
		logging.String("ytdlp_binary", ytdlp),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("watch_enabled", cfg.Watch.Enabled),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
