package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	ReportsDir string `toml:"reports_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"ytdlp"`
}

// Ingest contains configuration for source acquisition (downloads and imports).
type Ingest struct {
	AudioFormat        string `toml:"audio_format"`
	RateLimit          string `toml:"rate_limit"`
	DownloadTimeout    int    `toml:"download_timeout"`
	InfoTimeout        int    `toml:"info_timeout"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
}

// Analysis contains the feature extraction parameters.
type Analysis struct {
	SampleRate         int     `toml:"sample_rate"`
	FrameSize          int     `toml:"frame_size"`
	HopSize            int     `toml:"hop_size"`
	TempoMinBPM        float64 `toml:"tempo_min_bpm"`
	TempoMaxBPM        float64 `toml:"tempo_max_bpm"`
	KeyWindowSeconds   float64 `toml:"key_window_seconds"`
	MaxAnalysisSeconds float64 `toml:"max_analysis_seconds"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

// Profile contains reference profile building parameters.
type Profile struct {
	MinTracks          int `toml:"min_tracks"`
	MaxClusters        int `toml:"max_clusters"`
	TopRecommendations int `toml:"top_recommendations"`
}

// Watch contains configuration for the watch folder that auto-enqueues
// dropped audio files as gap-check candidates.
type Watch struct {
	Enabled       bool   `toml:"enabled"`
	Dir           string `toml:"dir"`
	DefaultSet    string `toml:"default_set"`
	SettleSeconds int    `toml:"settle_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Ingest             bool   `toml:"ingest"`
	Analysis           bool   `toml:"analysis"`
	Reports            bool   `toml:"reports"`
	Queue              bool   `toml:"queue"`
	Review             bool   `toml:"review"`
	Errors             bool   `toml:"errors"`
	QueueMinItems      int    `toml:"queue_min_items"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	MaxRetries         int `toml:"max_retries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for Soundcheck.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Tools: external binaries (ffmpeg, ffprobe, yt-dlp)
//   - Ingest: download format, rate limiting, and timeouts
//   - Analysis: decode rate and feature extraction parameters
//   - Profile: reference profile statistics and clustering settings
//   - Watch: watch folder for auto-enqueued candidate mixes
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Ingest        Ingest        `toml:"ingest"`
	Analysis      Analysis      `toml:"analysis"`
	Profile       Profile       `toml:"profile"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/soundcheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/soundcheck/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("soundcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Watch.Dir) != "" {
		if err := os.MkdirAll(c.Watch.Dir, 0o755); err != nil {
			return fmt.Errorf("create watch directory %q: %w", c.Watch.Dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decoding.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.Tools.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.Tools.FFprobe); b != "" {
		return b
	}
	return "ffprobe"
}

// YtDlpBinary returns the yt-dlp executable used for source downloads.
func (c *Config) YtDlpBinary() string {
	if b := strings.TrimSpace(c.Tools.YtDlp); b != "" {
		return b
	}
	return "yt-dlp"
}

// QueueDatabasePath returns the on-disk location of the work queue database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "queue.db")
}

// LibraryDatabasePath returns the on-disk location of the track library database.
func (c *Config) LibraryDatabasePath() string {
	return filepath.Join(c.Paths.LogDir, "library.db")
}

// SocketPath returns the IPC socket location used by the daemon and CLI.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "soundcheck.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
