package queue

import (
	"database/sql"
	"errors"
	"time"

	"soundcheck/internal/textutil"
)

const itemColumns = "id, kind, source_url, source_path, title, artist, set_name, profile_name, status, audio_path, item_log_path, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, fingerprint, track_id, metadata_json, last_heartbeat, needs_review, review_reason, retry_count"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		kindStr          sql.NullString
		sourceURL        sql.NullString
		sourcePath       sql.NullString
		title            sql.NullString
		artist           sql.NullString
		setName          sql.NullString
		profileName      sql.NullString
		statusStr        string
		audioPath        sql.NullString
		itemLogPath      sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		fingerprint      sql.NullString
		trackID          sql.NullInt64
		metadata         sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
		retryCount       sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&kindStr,
		&sourceURL,
		&sourcePath,
		&title,
		&artist,
		&setName,
		&profileName,
		&statusStr,
		&audioPath,
		&itemLogPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&fingerprint,
		&trackID,
		&metadata,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
		&retryCount,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		Kind:            Kind(kindStr.String),
		SourceURL:       sourceURL.String,
		SourcePath:      sourcePath.String,
		Title:           title.String,
		Artist:          artist.String,
		SetName:         setName.String,
		ProfileName:     profileName.String,
		Status:          Status(statusStr),
		AudioPath:       audioPath.String,
		ItemLogPath:     itemLogPath.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		Fingerprint:     fingerprint.String,
		MetadataJSON:    metadata.String,
	}
	if trackID.Valid {
		item.TrackID = trackID.Int64
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}
	item.ReviewReason = reviewReason.String
	if retryCount.Valid {
		item.RetryCount = int(retryCount.Int64)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func inferTitleFromPath(path string) string {
	return textutil.TitleFromPath(path, "Manual Import")
}
