package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"track_title",
	"track_artist",
	"set_name",
	"processing_status",
	FieldProgressStage,
	FieldProgressPercent,
	FieldProgressMessage,
	FieldProgressETA,
	"command",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	FieldErrorDetailPath,
	"status",
	"source_url",
	"format",
	"audio_codec",
	"sample_rate_hz",
	"channels",
	"bitrate_kbps",
	"bpm",
	"key_name",
	"camelot",
	"integrated_lufs",
	"loudness_range_lu",
	"true_peak_dbfs",
	"crest_factor_db",
	"dynamic_range_db",
	"stereo_width",
	"spectral_centroid_hz",
	"bass_energy_ratio",
	"profile_name",
	"cluster_name",
	"silhouette",
	"match_score",
	"gap_count",
	"critical_count",
	"warning_count",
	"top_fix",
	"report_format",
	"decision_result",
	"decision_selected",
	"decision_candidates",
	"decision_rejects",
	// Stage summary fields
	"stage_duration",
	"download_duration",
	"decode_duration",
	"analysis_duration",
	"profile_duration",
	"report_duration",
	"downloaded_bytes",
	"audio_bytes",
	"track_count",
	"cluster_count",
	"metrics_count",
	"extractors_run",
	"cache_used",
	"cache_decision",
	"needs_review",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	formatted := make([]string, len(attrs))
	formattedSet := make([]bool, len(attrs))
	ensureValue := func(idx int) string {
		if !formattedSet[idx] {
			formatted[idx] = formatValueForKeyWithAttrs(attrs[idx].key, attrs[idx].value, attrs)
			formattedSet[idx] = true
		}
		return formatted[idx]
	}
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(result) >= limit {
			break
		}
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			if skipInfoKey(attr.key) {
				break
			}
			if !includeDebug && isDebugOnlyKey(attr.key) {
				hidden++
				break
			}
			val := ensureValue(idx)
			if !includeDebug && shouldHideInfoValue(attr.key, val) {
				hidden++
				break
			}
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
			break
		}
	}

	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		used[idx] = true
		if skipInfoKey(attr.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		val := ensureValue(idx)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			continue
		}
		if limit <= 0 || len(result) < limit {
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
		} else if limit > 0 {
			hidden++
		}
	}

	return result, hidden
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKeyWithAttrs(key string, v slog.Value, attrs []kv) string {
	v = v.Resolve()

	// Handle byte sizes
	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var bytes int64
		if v.Kind() == slog.KindInt64 {
			bytes = v.Int64()
		} else {
			bytes = int64(v.Uint64())
		}
		return FormatBytes(bytes)
	}

	// Handle durations
	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	// Handle percentages
	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}

	// Handle booleans with friendlier display
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		detailPath := attrValue(attrs, FieldErrorDetailPath)
		value = truncateErrorValue(value, detailPath)
	}
	return value
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") ||
		strings.HasSuffix(key, "_ratio_percent") ||
		key == FieldProgressPercent
}

func truncateErrorValue(value, detailPath string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	if strings.TrimSpace(detailPath) != "" {
		if !strings.Contains(value, "error_detail_path") && !strings.Contains(value, "detail_path") {
			value += " (see error_detail_path)"
		}
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldItemID, FieldStage, FieldLane, "component":
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldCorrelationID,
		"fingerprint",
		"frame_size",
		"hop_size",
		"frames_analyzed",
		"window_count",
		"peak_count",
		"pair_count",
		"lag_range",
		"tuning_cents",
		"iterations",
		"seed",
		"score",
		"score_reasons",
		"size_mb",
		"duration_seconds",
		"attempt",
		"settle_seconds":
		return true
	}
	if strings.Contains(key, "correlation") {
		return true
	}
	if strings.HasSuffix(key, "_id") && key != FieldItemID {
		return true
	}
	if strings.HasPrefix(key, "ffprobe.") || strings.HasPrefix(key, "ytdlp.") {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") {
		return true
	}
	if strings.Contains(key, "fingerprint") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "command", "reason", "top_fix":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldDecisionType:
		return "Decision"
	case FieldErrorCode:
		return "Error Code"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorDetailPath:
		return "Error Detail"
	case FieldItemID:
		return "Item"
	case FieldStage:
		return "Stage"
	case "track_title":
		return "Track"
	case "track_artist":
		return "Artist"
	case "set_name":
		return "Set"
	case "processing_status":
		return "Status"
	case "progress_stage":
		return "Progress Stage"
	case "progress_message":
		return "Progress"
	case "source_url":
		return "Source"
	case "audio_codec":
		return "Codec"
	case "sample_rate_hz":
		return "Sample Rate"
	case "bitrate_kbps":
		return "Bitrate"
	case "bpm":
		return "BPM"
	case "key_name":
		return "Key"
	case "camelot":
		return "Camelot"
	case "integrated_lufs":
		return "Loudness"
	case "loudness_range_lu":
		return "Loudness Range"
	case "true_peak_dbfs":
		return "True Peak"
	case "crest_factor_db":
		return "Crest"
	case "dynamic_range_db":
		return "Dynamic Range"
	case "spectral_centroid_hz":
		return "Centroid"
	case "bass_energy_ratio":
		return "Bass Ratio"
	case "profile_name":
		return "Profile"
	case "cluster_name":
		return "Cluster"
	case "match_score":
		return "Match"
	case "gap_count":
		return "Gaps"
	case "critical_count":
		return "Critical"
	case "warning_count":
		return "Warnings"
	case "top_fix":
		return "Top Fix"
	case "report_format":
		return "Report"
	// Stage summary fields - concise labels
	case "stage_duration":
		return "Duration"
	case "download_duration":
		return "Download Time"
	case "decode_duration":
		return "Decode Time"
	case "analysis_duration":
		return "Analysis Time"
	case "profile_duration":
		return "Profile Time"
	case "report_duration":
		return "Report Time"
	case "downloaded_bytes":
		return "Downloaded"
	case "audio_bytes":
		return "Audio Size"
	case "track_count":
		return "Tracks"
	case "cluster_count":
		return "Clusters"
	case "metrics_count":
		return "Metrics"
	case "extractors_run":
		return "Extractors"
	case "cache_used":
		return "Cache Hit"
	case "cache_decision":
		return "Cache"
	case "needs_review":
		return "Needs Review"
	case "decision_result":
		return "Decision"
	case "decision_selected":
		return "Selected"
	case "decision_candidates":
		return "Candidates"
	case "decision_rejects":
		return "Rejected"
	case "reason":
		return "Reason"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func infoSummaryKey(component, itemID, _ string, attrs []kv) string {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		if track := attrValue(attrs, "track_title"); track != "" {
			itemID = "track:" + track
		} else if set := attrValue(attrs, "set_name"); set != "" {
			itemID = "set:" + set
		} else if component != "" {
			itemID = component
		}
	}
	if itemID == "" {
		return ""
	}
	return itemID
}

func attrValue(attrs []kv, key string) string {
	for _, kv := range attrs {
		if kv.key == key {
			return attrString(kv.value)
		}
	}
	return ""
}
