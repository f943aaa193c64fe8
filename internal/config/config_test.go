package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"soundcheck/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "soundcheck", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "soundcheck", "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7587" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Watch.Enabled {
		t.Fatal("expected watch folder disabled by default")
	}
	if cfg.Analysis.SampleRate != 44100 {
		t.Fatalf("unexpected default sample rate: %d", cfg.Analysis.SampleRate)
	}
	if cfg.Analysis.FrameSize != 4096 || cfg.Analysis.HopSize != 1024 {
		t.Fatalf("unexpected STFT defaults: frame=%d hop=%d", cfg.Analysis.FrameSize, cfg.Analysis.HopSize)
	}
	if cfg.Profile.MinTracks != 3 {
		t.Fatalf("unexpected profile.min_tracks: %d", cfg.Profile.MinTracks)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != config.Default().Workflow.HeartbeatTimeout {
		t.Fatalf("unexpected heartbeat timeout: %d", cfg.Workflow.HeartbeatTimeout)
	}
	if got := cfg.QueueDatabasePath(); got != filepath.Join(cfg.Paths.LogDir, "queue.db") {
		t.Fatalf("unexpected queue db path: %q", got)
	}
	if got := cfg.LibraryDatabasePath(); got != filepath.Join(cfg.Paths.LogDir, "library.db") {
		t.Fatalf("unexpected library db path: %q", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir, cfg.Paths.ReportsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "soundcheck.toml")

	type payload struct {
		Ingest struct {
			AudioFormat string `toml:"audio_format"`
			RateLimit   string `toml:"rate_limit"`
		} `toml:"ingest"`
		Analysis struct {
			SampleRate  int     `toml:"sample_rate"`
			TempoMinBPM float64 `toml:"tempo_min_bpm"`
			TempoMaxBPM float64 `toml:"tempo_max_bpm"`
		} `toml:"analysis"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Ingest.AudioFormat = "opus"
	custom.Ingest.RateLimit = "4M"
	custom.Analysis.SampleRate = 48000
	custom.Analysis.TempoMinBPM = 70
	custom.Analysis.TempoMaxBPM = 180
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Ingest.AudioFormat != "opus" {
		t.Fatalf("expected audio format from file, got %q", cfg.Ingest.AudioFormat)
	}
	if cfg.Ingest.RateLimit != "4M" {
		t.Fatalf("expected rate limit override, got %q", cfg.Ingest.RateLimit)
	}
	if cfg.Analysis.SampleRate != 48000 {
		t.Fatalf("expected sample rate 48000, got %d", cfg.Analysis.SampleRate)
	}
	if cfg.Analysis.TempoMinBPM != 70 || cfg.Analysis.TempoMaxBPM != 180 {
		t.Fatalf("unexpected tempo range: %v-%v", cfg.Analysis.TempoMinBPM, cfg.Analysis.TempoMaxBPM)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestEnvVarFallbacks(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "soundcheck.toml")
	if err := os.WriteFile(configPath, []byte(""), 0o644); err != nil {
		t.Fatalf("write empty config: %v", err)
	}

	t.Setenv("SOUNDCHECK_NTFY_TOPIC", "env-topic")
	t.Setenv("SOUNDCHECK_API_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "env-topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "tempo_min_bpm") {
		t.Fatalf("sample config missing analysis settings: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	// On Windows join uses backslashes; skip path expectation specifics when running there to avoid
	// differences in drive letters during CI.
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.StagingDir, "soundcheck") {
			t.Fatalf("expected staging dir to contain soundcheck, got %q", cfg.Paths.StagingDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Ingest.DownloadTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Analysis.FrameSize = 3000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non power-of-two frame size")
	}

	cfg = config.Default()
	cfg.Analysis.TempoMinBPM = 180
	cfg.Analysis.TempoMaxBPM = 90
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted tempo range")
	}

	cfg = config.Default()
	cfg.Profile.MinTracks = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_tracks below 2")
	}

	cfg = config.Default()
	cfg.Watch.Enabled = true
	cfg.Watch.DefaultSet = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when watch enabled without default set")
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "soundcheck.toml")
	if err := os.WriteFile(configPath, []byte("[analysis]\nsample_rate = 48000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Analysis.SampleRate != 48000 {
		t.Fatalf("unexpected sample rate: %d", cfg.Analysis.SampleRate)
	}
	if cfg.Analysis.FrameSize != config.Default().Analysis.FrameSize {
		t.Fatalf("expected default frame size, got %d", cfg.Analysis.FrameSize)
	}
	if cfg.Ingest.AudioFormat != config.Default().Ingest.AudioFormat {
		t.Fatalf("expected default audio format, got %q", cfg.Ingest.AudioFormat)
	}
}
