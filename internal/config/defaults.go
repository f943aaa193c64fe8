package config

const (
	defaultStagingDir         = "~/.local/share/soundcheck/staging"
	defaultLibraryDir         = "~/soundcheck/library"
	defaultReportsDir         = "~/soundcheck/reports"
	defaultLogDir             = "~/.local/share/soundcheck/logs"
	defaultWatchDir           = "~/soundcheck/inbox"
	defaultAPIBind            = "127.0.0.1:7587"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
	defaultAudioFormat        = "m4a"
	defaultDownloadTimeout    = 900
	defaultInfoTimeout        = 60
	defaultMaxDuration        = 1200
	defaultSampleRate         = 44100
	defaultFrameSize          = 4096
	defaultHopSize            = 1024
	defaultTempoMinBPM        = 60
	defaultTempoMaxBPM        = 200
	defaultKeyWindowSeconds   = 120
	defaultAnalysisTimeout    = 600
	defaultProfileMinTracks   = 3
	defaultProfileMaxClusters = 4
	defaultTopRecommendations = 5
	defaultWatchSettleSeconds = 3
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultMaxRetries         = 2
	defaultNotifyQueueMin     = 2
	defaultNotifyDedupWindow  = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			ReportsDir: defaultReportsDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
		},
		Ingest: Ingest{
			AudioFormat:        defaultAudioFormat,
			DownloadTimeout:    defaultDownloadTimeout,
			InfoTimeout:        defaultInfoTimeout,
			MaxDurationSeconds: defaultMaxDuration,
		},
		Analysis: Analysis{
			SampleRate:       defaultSampleRate,
			FrameSize:        defaultFrameSize,
			HopSize:          defaultHopSize,
			TempoMinBPM:      defaultTempoMinBPM,
			TempoMaxBPM:      defaultTempoMaxBPM,
			KeyWindowSeconds: defaultKeyWindowSeconds,
			TimeoutSeconds:   defaultAnalysisTimeout,
		},
		Profile: Profile{
			MinTracks:          defaultProfileMinTracks,
			MaxClusters:        defaultProfileMaxClusters,
			TopRecommendations: defaultTopRecommendations,
		},
		Watch: Watch{
			Dir:           defaultWatchDir,
			SettleSeconds: defaultWatchSettleSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Ingest:             true,
			Analysis:           true,
			Reports:            true,
			Queue:              true,
			Review:             true,
			Errors:             true,
			QueueMinItems:      defaultNotifyQueueMin,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxRetries:         defaultMaxRetries,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
