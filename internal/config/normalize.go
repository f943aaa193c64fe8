package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeIngest()
	c.normalizeAnalysis()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.ReportsDir, err = expandPath(c.Paths.ReportsDir); err != nil {
		return fmt.Errorf("paths.reports_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SOUNDCHECK_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.YtDlp = strings.TrimSpace(c.Tools.YtDlp)
}

func (c *Config) normalizeIngest() {
	c.Ingest.AudioFormat = strings.ToLower(strings.TrimSpace(c.Ingest.AudioFormat))
	if c.Ingest.AudioFormat == "" {
		c.Ingest.AudioFormat = defaultAudioFormat
	}
	c.Ingest.RateLimit = strings.TrimSpace(c.Ingest.RateLimit)
	if c.Ingest.DownloadTimeout <= 0 {
		c.Ingest.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Ingest.InfoTimeout <= 0 {
		c.Ingest.InfoTimeout = defaultInfoTimeout
	}
	if c.Ingest.MaxDurationSeconds < 0 {
		c.Ingest.MaxDurationSeconds = 0
	}
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.SampleRate <= 0 {
		c.Analysis.SampleRate = defaultSampleRate
	}
	if c.Analysis.FrameSize <= 0 {
		c.Analysis.FrameSize = defaultFrameSize
	}
	if c.Analysis.HopSize <= 0 {
		c.Analysis.HopSize = c.Analysis.FrameSize / 4
	}
	if c.Analysis.KeyWindowSeconds <= 0 {
		c.Analysis.KeyWindowSeconds = defaultKeyWindowSeconds
	}
	if c.Analysis.MaxAnalysisSeconds < 0 {
		c.Analysis.MaxAnalysisSeconds = 0
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeout
	}
}

func (c *Config) normalizeWatch() error {
	var err error
	if strings.TrimSpace(c.Watch.Dir) == "" {
		c.Watch.Dir = defaultWatchDir
	}
	if c.Watch.Dir, err = expandPath(c.Watch.Dir); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}
	c.Watch.DefaultSet = strings.TrimSpace(c.Watch.DefaultSet)
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SOUNDCHECK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.QueueMinItems <= 0 {
		c.Notifications.QueueMinItems = defaultNotifyQueueMin
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		c.Notifications.DedupWindowSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
