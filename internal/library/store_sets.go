package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const setColumns = "id, name, description, genre, created_at, updated_at"

// CreateSet inserts a reference set. Name must be unique; creating an existing
// name returns the stored set unchanged.
func (s *Store) CreateSet(ctx context.Context, name, description, genre string) (*ReferenceSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("set name is required")
	}
	ctx = ensureContext(ctx)

	existing, err := s.SetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		"INSERT INTO reference_sets (name, description, genre, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		name, description, genre, now, now)
	if err != nil {
		return nil, fmt.Errorf("create set %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create set %q: %w", name, err)
	}
	return s.SetByID(ctx, id)
}

// SetByID returns the reference set with the given ID, or nil.
func (s *Store) SetByID(ctx context.Context, id int64) (*ReferenceSet, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM reference_sets WHERE id = ?", setColumns), id)
	set, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query set %d: %w", id, err)
	}
	return set, nil
}

// SetByName returns the reference set with the given name, or nil.
func (s *Store) SetByName(ctx context.Context, name string) (*ReferenceSet, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM reference_sets WHERE name = ?", setColumns), strings.TrimSpace(name))
	set, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query set %q: %w", name, err)
	}
	return set, nil
}

// ListSets returns all reference sets ordered by name.
func (s *Store) ListSets(ctx context.Context) ([]*ReferenceSet, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM reference_sets ORDER BY name ASC", setColumns))
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var sets []*ReferenceSet
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// DeleteSet removes the set, its memberships, and its stored profiles. Tracks
// themselves are never deleted.
func (s *Store) DeleteSet(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, "DELETE FROM reference_sets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("set %d not found", id)
	}
	return nil
}

// AddTrackToSet records membership; adding an existing member is a no-op.
func (s *Store) AddTrackToSet(ctx context.Context, setID, trackID int64) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		"INSERT OR IGNORE INTO set_members (set_id, track_id, added_at) VALUES (?, ?, ?)",
		setID, trackID, now); err != nil {
		return fmt.Errorf("add track %d to set %d: %w", trackID, setID, err)
	}
	return nil
}

// RemoveTrackFromSet drops membership without touching the track row.
func (s *Store) RemoveTrackFromSet(ctx context.Context, setID, trackID int64) error {
	ctx = ensureContext(ctx)
	if _, err := s.execWithRetry(ctx,
		"DELETE FROM set_members WHERE set_id = ? AND track_id = ?", setID, trackID); err != nil {
		return fmt.Errorf("remove track %d from set %d: %w", trackID, setID, err)
	}
	return nil
}

// SetTrackCount returns the number of member tracks in the set.
func (s *Store) SetTrackCount(ctx context.Context, setID int64) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM set_members WHERE set_id = ?", setID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count set members: %w", err)
	}
	return count, nil
}

func scanSet(scanner rowScanner) (*ReferenceSet, error) {
	var (
		set       ReferenceSet
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&set.ID, &set.Name, &set.Description, &set.Genre, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if parsed, err := parseTimeString(createdAt); err == nil {
		set.CreatedAt = parsed
	}
	if parsed, err := parseTimeString(updatedAt); err == nil {
		set.UpdatedAt = parsed
	}
	return &set, nil
}
