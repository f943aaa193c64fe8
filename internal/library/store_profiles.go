package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveProfile stores a profile snapshot for the set. Older snapshots are kept
// so profile drift over time stays inspectable.
func (s *Store) SaveProfile(ctx context.Context, record *ProfileRecord) error {
	if record == nil {
		return errors.New("profile record is nil")
	}
	if record.SetID == 0 {
		return errors.New("profile set ID is required")
	}
	if strings.TrimSpace(record.Payload) == "" {
		return errors.New("profile payload is required")
	}
	ctx = ensureContext(ctx)

	if record.BuiltAt.IsZero() {
		record.BuiltAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(ctx,
		"INSERT INTO profiles (set_id, built_at, track_count, payload) VALUES (?, ?, ?, ?)",
		record.SetID, record.BuiltAt.Format(time.RFC3339Nano), record.TrackCount, record.Payload)
	if err != nil {
		return fmt.Errorf("save profile for set %d: %w", record.SetID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save profile for set %d: %w", record.SetID, err)
	}
	record.ID = id
	return nil
}

// LatestProfile returns the most recently built profile for the set, or nil
// when the set has never been profiled.
func (s *Store) LatestProfile(ctx context.Context, setID int64) (*ProfileRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, set_id, built_at, track_count, payload FROM profiles
		WHERE set_id = ? ORDER BY built_at DESC, id DESC LIMIT 1`, setID)

	var (
		record   ProfileRecord
		builtRaw string
	)
	err := row.Scan(&record.ID, &record.SetID, &builtRaw, &record.TrackCount, &record.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest profile for set %d: %w", setID, err)
	}
	if parsed, err := parseTimeString(builtRaw); err == nil {
		record.BuiltAt = parsed
	}
	return &record, nil
}

// ProfileCount returns the number of stored snapshots for the set.
func (s *Store) ProfileCount(ctx context.Context, setID int64) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM profiles WHERE set_id = ?", setID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}
