package api

import (
	"encoding/json"
	"time"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64           `json:"id"`
	Kind           string          `json:"kind"`
	Title          string          `json:"title"`
	Artist         string          `json:"artist,omitempty"`
	SetName        string          `json:"setName,omitempty"`
	SourceURL      string          `json:"sourceUrl,omitempty"`
	SourcePath     string          `json:"sourcePath,omitempty"`
	Status         string          `json:"status"`
	ProcessingLane string          `json:"processingLane"`
	Progress       QueueProgress   `json:"progress"`
	ErrorMessage   string          `json:"errorMessage"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	Fingerprint    string          `json:"fingerprint,omitempty"`
	TrackID        int64           `json:"trackId,omitempty"`
	AudioPath      string          `json:"audioPath,omitempty"`
	ReportPath     string          `json:"reportPath,omitempty"`
	MatchScore     float64         `json:"matchScore,omitempty"`
	ItemLogPath    string          `json:"itemLogPath,omitempty"`
	NeedsReview    bool            `json:"needsReview"`
	ReviewReason   string          `json:"reviewReason,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labeled severity/detail row rendered by status UIs.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness for status output.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	QueueDBPath   string             `json:"queueDbPath"`
	LibraryDBPath string             `json:"libraryDbPath"`
	LockFilePath  string             `json:"lockFilePath"`
	Workflow      WorkflowStatus     `json:"workflow"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// Track describes a library track in a transport-friendly format.
type Track struct {
	ID              int64   `json:"id"`
	Fingerprint     string  `json:"fingerprint,omitempty"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist,omitempty"`
	Kind            string  `json:"kind"`
	SourceURL       string  `json:"sourceUrl,omitempty"`
	LibraryPath     string  `json:"libraryPath,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	SampleRate      int     `json:"sampleRate,omitempty"`
	Channels        int     `json:"channels,omitempty"`
	Format          string  `json:"format,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

// SimilarTrack pairs a track with its similarity score.
type SimilarTrack struct {
	Track      Track   `json:"track"`
	Similarity float64 `json:"similarity"`
}

// ReferenceSet describes a reference set in a transport-friendly format.
type ReferenceSet struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
	TrackCount  int    `json:"trackCount"`
	Profiled    bool   `json:"profiled"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// ProfileInfo summarizes a stored profile snapshot.
type ProfileInfo struct {
	SetID      int64           `json:"setId"`
	SetName    string          `json:"setName"`
	BuiltAt    string          `json:"builtAt"`
	TrackCount int             `json:"trackCount"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// TrackListResponse wraps library tracks.
type TrackListResponse struct {
	Tracks []Track `json:"tracks"`
}

// SetListResponse wraps reference sets.
type SetListResponse struct {
	Sets []ReferenceSet `json:"sets"`
}

// SimilarTracksResponse wraps similarity query results.
type SimilarTracksResponse struct {
	TrackID int64          `json:"trackId"`
	Matches []SimilarTrack `json:"matches"`
}

// EnqueueRequest submits a new source over HTTP.
type EnqueueRequest struct {
	Source  string `json:"source"`
	Kind    string `json:"kind,omitempty"`
	SetName string `json:"setName,omitempty"`
}

// EnqueueResponse reports the queue item handling a submission.
type EnqueueResponse struct {
	Item    QueueItem `json:"item"`
	Created bool      `json:"created"`
}

// LogEvent is the transport form of a structured log line.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	ItemID    int64             `json:"itemId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// DetailField carries a label/value pair rendered under a log line.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse returns buffered log events plus the next cursor.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
