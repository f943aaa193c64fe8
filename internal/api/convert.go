package api

import (
	"encoding/json"
	"slices"
	"time"

	"soundcheck/internal/library"
	"soundcheck/internal/queue"
	"soundcheck/internal/stage"
	"soundcheck/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		Kind:           string(item.Kind),
		Title:          item.Title,
		Artist:         item.Artist,
		SetName:        item.SetName,
		SourceURL:      item.SourceURL,
		SourcePath:     item.SourcePath,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage: item.ErrorMessage,
		Fingerprint:  item.Fingerprint,
		TrackID:      item.TrackID,
		AudioPath:    item.AudioPath,
		ItemLogPath:  item.ItemLogPath,
		NeedsReview:  item.NeedsReview,
		ReviewReason: item.ReviewReason,
	}

	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	dto.ReportPath = meta.ReportPath
	dto.MatchScore = meta.MatchScore
	if dto.Artist == "" {
		dto.Artist = meta.ArtistValue
	}

	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := item.MetadataJSON; raw != "" {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromTrack converts a library track to its API representation.
func FromTrack(track *library.Track) Track {
	if track == nil {
		return Track{}
	}
	dto := Track{
		ID:              track.ID,
		Fingerprint:     track.Fingerprint,
		Title:           track.Title,
		Artist:          track.Artist,
		Kind:            string(track.Kind),
		SourceURL:       track.SourceURL,
		LibraryPath:     track.LibraryPath,
		DurationSeconds: track.DurationSeconds,
		SampleRate:      track.SampleRate,
		Channels:        track.Channels,
		Format:          track.Format,
	}
	if !track.CreatedAt.IsZero() {
		dto.CreatedAt = track.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromTracks converts library tracks into API DTOs.
func FromTracks(tracks []*library.Track) []Track {
	if len(tracks) == 0 {
		return nil
	}
	out := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, FromTrack(track))
	}
	return out
}

// FromSimilarTracks converts similarity results into API DTOs.
func FromSimilarTracks(matches []library.SimilarTrack) []SimilarTrack {
	if len(matches) == 0 {
		return nil
	}
	out := make([]SimilarTrack, 0, len(matches))
	for _, match := range matches {
		track := match.Track
		out = append(out, SimilarTrack{Track: FromTrack(&track), Similarity: match.Similarity})
	}
	return out
}

// FromSet converts a reference set plus derived counts to its API representation.
func FromSet(set *library.ReferenceSet, trackCount int, profiled bool) ReferenceSet {
	if set == nil {
		return ReferenceSet{}
	}
	dto := ReferenceSet{
		ID:          set.ID,
		Name:        set.Name,
		Description: set.Description,
		Genre:       set.Genre,
		TrackCount:  trackCount,
		Profiled:    profiled,
	}
	if !set.CreatedAt.IsZero() {
		dto.CreatedAt = set.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromProfileRecord converts a stored profile snapshot to its API representation.
func FromProfileRecord(record *library.ProfileRecord, setName string, includePayload bool) ProfileInfo {
	if record == nil {
		return ProfileInfo{}
	}
	dto := ProfileInfo{
		SetID:      record.SetID,
		SetName:    setName,
		TrackCount: record.TrackCount,
	}
	if !record.BuiltAt.IsZero() {
		dto.BuiltAt = record.BuiltAt.UTC().Format(dateTimeFormat)
	}
	if includePayload && record.Payload != "" {
		dto.Payload = json.RawMessage(record.Payload)
	}
	return dto
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}

	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
