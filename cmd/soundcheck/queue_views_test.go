package main

import (
	"testing"

	"soundcheck/internal/api"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending":     "Pending",
		"reset_stuck": "Reset Stuck",
		"analyzing":   "Analyzing",
		"":            "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildQueueListRowsOrdering(t *testing.T) {
	items := []api.QueueItem{
		{ID: 1, Title: "Oldest", Kind: "candidate", Status: "pending", CreatedAt: "2026-01-01T10:00:00Z"},
		{ID: 3, Title: "Newest", Kind: "candidate", Status: "pending", CreatedAt: "2026-01-03T10:00:00Z"},
		{ID: 2, Title: "Middle", Kind: "reference", SetName: "deep-house", Status: "completed", CreatedAt: "2026-01-02T10:00:00Z"},
	}

	rows := buildQueueListRows(items)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][1] != "Newest" || rows[2][1] != "Oldest" {
		t.Fatalf("expected newest-first ordering, got %v", rows)
	}
	if rows[1][3] != "deep-house" {
		t.Fatalf("expected set label, got %v", rows[1])
	}
	if rows[0][3] != "-" {
		t.Fatalf("expected dash placeholder for empty set, got %q", rows[0][3])
	}
}

func TestBuildQueueListRowsTitleFallback(t *testing.T) {
	items := []api.QueueItem{
		{ID: 1, SourcePath: "/music/incoming/warehouse-mix.mp3", Kind: "candidate", Status: "fetched", CreatedAt: "2026-01-01T10:00:00Z"},
		{ID: 2, SourceURL: "https://youtube.com/watch?v=abc123def45", Kind: "candidate", Status: "pending", CreatedAt: "2026-01-02T10:00:00Z"},
		{ID: 3, Kind: "candidate", Status: "pending", CreatedAt: "2026-01-03T10:00:00Z"},
	}

	rows := buildQueueListRows(items)
	if rows[2][1] != "warehouse-mix.mp3" {
		t.Fatalf("expected basename fallback, got %q", rows[2][1])
	}
	if rows[0][1] != "Unknown" {
		t.Fatalf("expected Unknown fallback, got %q", rows[0][1])
	}
}

func TestBuildQueueStatusRowsSorted(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"pending": 2,
		"failed":  1,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Failed" || rows[1][0] != "Pending" {
		t.Fatalf("expected alphabetical ordering, got %v", rows)
	}
}
