package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const trackColumns = `id, fingerprint, title, artist, kind, source_url, source_path,
	library_path, duration_seconds, sample_rate, channels, format, bitrate, created_at, updated_at`

// SaveTrack inserts the track or, when a row with the same fingerprint already
// exists, updates it in place. The assigned ID and timestamps are written back
// to the passed struct.
func (s *Store) SaveTrack(ctx context.Context, track *Track) error {
	if track == nil {
		return errors.New("track is nil")
	}
	if strings.TrimSpace(track.Fingerprint) == "" {
		return errors.New("track fingerprint is required")
	}
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = now
	}
	track.UpdatedAt = now
	if track.Kind == "" {
		track.Kind = KindCandidate
	}

	query := `INSERT INTO tracks (
		fingerprint, title, artist, kind, source_url, source_path, library_path,
		duration_seconds, sample_rate, channels, format, bitrate, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		kind = excluded.kind,
		source_url = excluded.source_url,
		source_path = excluded.source_path,
		library_path = excluded.library_path,
		duration_seconds = excluded.duration_seconds,
		sample_rate = excluded.sample_rate,
		channels = excluded.channels,
		format = excluded.format,
		bitrate = excluded.bitrate,
		updated_at = excluded.updated_at`

	if _, err := s.execWithRetry(ctx, query,
		track.Fingerprint,
		track.Title,
		track.Artist,
		string(track.Kind),
		track.SourceURL,
		track.SourcePath,
		track.LibraryPath,
		track.DurationSeconds,
		track.SampleRate,
		track.Channels,
		track.Format,
		track.Bitrate,
		track.CreatedAt.Format(time.RFC3339Nano),
		track.UpdatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save track: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM tracks WHERE fingerprint = ?", track.Fingerprint)
	var createdAt string
	if err := row.Scan(&track.ID, &createdAt); err != nil {
		return fmt.Errorf("read back saved track: %w", err)
	}
	if parsed, err := parseTimeString(createdAt); err == nil {
		track.CreatedAt = parsed
	}
	return nil
}

// TrackByID returns the track with the given ID, or nil when it does not exist.
func (s *Store) TrackByID(ctx context.Context, id int64) (*Track, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM tracks WHERE id = ?", trackColumns), id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query track %d: %w", id, err)
	}
	return track, nil
}

// TrackByFingerprint returns the track with the given fingerprint, or nil.
func (s *Store) TrackByFingerprint(ctx context.Context, fingerprint string) (*Track, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM tracks WHERE fingerprint = ?", trackColumns), fingerprint)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query track by fingerprint: %w", err)
	}
	return track, nil
}

// ListTracks returns tracks ordered by creation time. A non-empty kind limits
// results to that kind; a non-empty setName limits results to members of that
// reference set; limit <= 0 returns everything.
func (s *Store) ListTracks(ctx context.Context, kind Kind, setName string, limit int) ([]*Track, error) {
	ctx = ensureContext(ctx)

	var (
		query   strings.Builder
		clauses []string
		args    []any
	)
	query.WriteString(fmt.Sprintf("SELECT %s FROM tracks", trackColumns))
	if setName != "" {
		clauses = append(clauses, `id IN (
			SELECT track_id FROM set_members
			JOIN reference_sets ON reference_sets.id = set_members.set_id
			WHERE reference_sets.name = ?)`)
		args = append(args, setName)
	}
	if kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(kind))
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY created_at ASC, id ASC")
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// RemoveTrack deletes the track; features and set memberships cascade.
func (s *Store) RemoveTrack(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove track %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove track %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("track %d not found", id)
	}
	return nil
}

// TrackCount returns the number of tracks, optionally filtered by kind.
func (s *Store) TrackCount(ctx context.Context, kind Kind) (int, error) {
	ctx = ensureContext(ctx)
	query := "SELECT COUNT(1) FROM tracks"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}
