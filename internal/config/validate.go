package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateProfile(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIngest() error {
	switch c.Ingest.AudioFormat {
	case "m4a", "opus", "mp3", "flac", "wav", "best":
	default:
		return fmt.Errorf("ingest.audio_format %q is not supported (use m4a, opus, mp3, flac, wav, or best)", c.Ingest.AudioFormat)
	}
	return ensurePositiveMap(map[string]int{
		"ingest.download_timeout": c.Ingest.DownloadTimeout,
		"ingest.info_timeout":     c.Ingest.InfoTimeout,
	})
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.SampleRate < 8000 || c.Analysis.SampleRate > 192000 {
		return errors.New("analysis.sample_rate must be between 8000 and 192000")
	}
	if c.Analysis.FrameSize < 256 || c.Analysis.FrameSize&(c.Analysis.FrameSize-1) != 0 {
		return errors.New("analysis.frame_size must be a power of two, 256 or larger")
	}
	if c.Analysis.HopSize <= 0 || c.Analysis.HopSize > c.Analysis.FrameSize {
		return errors.New("analysis.hop_size must be positive and no larger than analysis.frame_size")
	}
	if c.Analysis.TempoMinBPM < 30 || c.Analysis.TempoMaxBPM > 300 {
		return errors.New("analysis tempo range must stay within 30-300 BPM")
	}
	if c.Analysis.TempoMinBPM >= c.Analysis.TempoMaxBPM {
		return errors.New("analysis.tempo_min_bpm must be less than analysis.tempo_max_bpm")
	}
	if c.Analysis.KeyWindowSeconds <= 0 {
		return errors.New("analysis.key_window_seconds must be positive")
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateProfile() error {
	if c.Profile.MinTracks < 2 {
		return errors.New("profile.min_tracks must be at least 2")
	}
	if c.Profile.MaxClusters < 1 || c.Profile.MaxClusters > 10 {
		return errors.New("profile.max_clusters must be between 1 and 10")
	}
	if c.Profile.TopRecommendations < 1 {
		return errors.New("profile.top_recommendations must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"watch.settle_seconds":          c.Watch.SettleSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.MaxRetries < 0 {
		return errors.New("workflow.max_retries must be >= 0")
	}
	if c.Watch.Enabled && c.Watch.DefaultSet == "" {
		return errors.New("watch.default_set must be set when watch.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.QueueMinItems < 1 {
		return errors.New("notifications.queue_min_items must be >= 1")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
