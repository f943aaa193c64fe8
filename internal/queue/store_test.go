package queue_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"soundcheck/internal/queue"
	"soundcheck/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, created, err := store.NewURL(ctx, queue.KindReference, "https://www.youtube.com/watch?v=abc123def45", "yt:abc123def45", "warehouse")
	if err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	if !created {
		t.Fatal("expected item to be created")
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourceURL != "https://www.youtube.com/watch?v=abc123def45" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.Kind != queue.KindReference {
		t.Fatalf("expected reference kind, got %s", fetched.Kind)
	}
	if fetched.SetName != "warehouse" {
		t.Fatalf("expected set name persisted, got %q", fetched.SetName)
	}

	found, err := store.FindByFingerprint(ctx, "yt:abc123def45")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestNewURLRequiresFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, _, err := store.NewURL(ctx, queue.KindCandidate, "https://example.com/watch", "", ""); err == nil {
		t.Fatal("expected error when fingerprint missing")
	}
}

func TestNewURLReturnsActiveDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, created, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/dup11111111", "yt:dup11111111", "")
	if err != nil || !created {
		t.Fatalf("NewURL first: created=%v err=%v", created, err)
	}

	second, created, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/dup11111111", "yt:dup11111111", "")
	if err != nil {
		t.Fatalf("NewURL duplicate: %v", err)
	}
	if created {
		t.Fatal("expected duplicate submission to return existing item")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing item %d, got %d", first.ID, second.ID)
	}

	// Terminal items do not block resubmission.
	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update: %v", err)
	}
	third, created, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/dup11111111", "yt:dup11111111", "")
	if err != nil {
		t.Fatalf("NewURL after completion: %v", err)
	}
	if !created {
		t.Fatal("expected new item after previous run completed")
	}
	if third.ID == first.ID {
		t.Fatal("expected a fresh item ID")
	}
}

func TestNewFileStartsAtAnalysis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, created, err := store.NewFile(ctx, queue.KindCandidate, "/music/demos/my-track.wav", "")
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if !created {
		t.Fatal("expected item to be created")
	}
	if item.Status != queue.StatusFetched {
		t.Fatalf("expected local file to skip fetching, got status %s", item.Status)
	}
	if item.AudioPath != "/music/demos/my-track.wav" {
		t.Fatalf("expected audio path set, got %q", item.AudioPath)
	}
	if item.Title != "My Track" {
		t.Fatalf("expected inferred title, got %q", item.Title)
	}

	_, created, err = store.NewFile(ctx, queue.KindCandidate, "/music/demos/my-track.wav", "")
	if err != nil {
		t.Fatalf("NewFile duplicate: %v", err)
	}
	if created {
		t.Fatal("expected duplicate path submission to return existing item")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"fetching", queue.StatusFetching, queue.StatusPending},
		{"analyzing", queue.StatusAnalyzing, queue.StatusFetched},
		{"profiling", queue.StatusProfiling, queue.StatusAnalyzed},
		{"reporting", queue.StatusReporting, queue.StatusProfiled},
	}
	var ids []int64
	for i, tc := range cases {
		item, _, err := store.NewURL(ctx, queue.KindCandidate, fmt.Sprintf("https://youtu.be/reset%06d", i), fmt.Sprintf("yt:reset%06d", i), "")
		if err != nil {
			t.Fatalf("NewURL failed: %v", err)
		}
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestItemsByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/aaa00000001", "yt:aaa00000001", ""); err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	b, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/bbb00000001", "yt:bbb00000001", "")
	if err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	b.Status = queue.StatusFetched
	b.Title = "Track B"
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.ItemsByStatus(ctx, queue.StatusFetched)
	if err != nil {
		t.Fatalf("ItemsByStatus failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one fetched item, got %d", len(items))
	}
	if items[0].Title != "Track B" {
		t.Fatalf("expected Track B, got %s", items[0].Title)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/lista000001", "yt:lista000001", "")
	if err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	b, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/listb000001", "yt:listb000001", "")
	if err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	b.Status = queue.StatusFetched
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/listc000001", "yt:listc000001", "")
	if err != nil {
		t.Fatalf("NewURL failed: %v", err)
	}
	c.Status = queue.StatusFailed
	c.ErrorMessage = "boom"
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusFetched, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 items, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestRetryFailedCoversReviewItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/retry000001", "yt:retry000001", "")
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	b, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/retry000002", "yt:retry000002", "")
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	a.Status = queue.StatusFailed
	a.ErrorMessage = "boom"
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b.Status = queue.StatusReview
	b.NeedsReview = true
	b.ReviewReason = "source unavailable"
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 items retried, got %d", updated)
	}

	item, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected review item pending, got %s", item.Status)
	}
	if item.NeedsReview || item.ReviewReason != "" {
		t.Fatalf("expected review flags cleared, got %v %q", item.NeedsReview, item.ReviewReason)
	}

	// Mark A failed again and retry targeted selection.
	a.Status = queue.StatusFailed
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err = store.RetryFailed(ctx, a.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 item retried, got %d", updated)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/heart000001", "yt:heart000001", "")
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	item.Status = queue.StatusFetching
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	t.Run("all statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()
		cases := []struct {
			name       string
			processing queue.Status
			expected   queue.Status
		}{
			{"fetching", queue.StatusFetching, queue.StatusPending},
			{"analyzing", queue.StatusAnalyzing, queue.StatusFetched},
			{"profiling", queue.StatusProfiling, queue.StatusAnalyzed},
			{"reporting", queue.StatusReporting, queue.StatusProfiled},
		}
		var ids []int64
		for i, tc := range cases {
			item, _, err := store.NewURL(ctx, queue.KindCandidate, fmt.Sprintf("https://youtu.be/stale%06d", i), fmt.Sprintf("yt:stale%06d", i), "")
			if err != nil {
				t.Fatalf("NewURL: %v", err)
			}
			item.Status = tc.processing
			item.LastHeartbeat = &past
			if err := store.Update(ctx, item); err != nil {
				t.Fatalf("Update: %v", err)
			}
			ids = append(ids, item.ID)
		}

		count, exhausted, err := store.ReclaimStaleProcessing(
			ctx,
			time.Now().Add(-1*time.Hour),
			2,
			queue.StatusFetching,
			queue.StatusAnalyzing,
			queue.StatusProfiling,
			queue.StatusReporting,
		)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing: %v", err)
		}
		if int(count) != len(cases) {
			t.Fatalf("expected %d items reclaimed, got %d", len(cases), count)
		}
		if exhausted != 0 {
			t.Fatalf("expected no exhausted items on first reclaim, got %d", exhausted)
		}

		for idx, tc := range cases {
			updated, err := store.GetByID(ctx, ids[idx])
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if updated.Status != tc.expected {
				t.Fatalf("%s: expected status %s after reclaim, got %s", tc.name, tc.expected, updated.Status)
			}
			if updated.LastHeartbeat != nil {
				t.Fatalf("%s: expected heartbeat cleared, got %v", tc.name, updated.LastHeartbeat)
			}
		}
	})

	t.Run("filtered statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()

		fetching, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/stalefetch1", "yt:stalefetch1", "")
		if err != nil {
			t.Fatalf("NewURL fetching: %v", err)
		}
		fetching.Status = queue.StatusFetching
		fetching.LastHeartbeat = &past
		if err := store.Update(ctx, fetching); err != nil {
			t.Fatalf("Update fetching: %v", err)
		}

		analyzing, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/staleanaly1", "yt:staleanaly1", "")
		if err != nil {
			t.Fatalf("NewURL analyzing: %v", err)
		}
		analyzing.Status = queue.StatusAnalyzing
		analyzing.LastHeartbeat = &past
		if err := store.Update(ctx, analyzing); err != nil {
			t.Fatalf("Update analyzing: %v", err)
		}

		count, _, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), 2, queue.StatusAnalyzing)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing filtered: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 item reclaimed, got %d", count)
		}

		reclaimed, err := store.GetByID(ctx, analyzing.ID)
		if err != nil {
			t.Fatalf("GetByID analyzing: %v", err)
		}
		if reclaimed.Status != queue.StatusFetched {
			t.Fatalf("expected analyzing item rolled back to fetched, got %s", reclaimed.Status)
		}
		if reclaimed.LastHeartbeat != nil {
			t.Fatalf("expected analyzing heartbeat cleared, got %v", reclaimed.LastHeartbeat)
		}

		unchanged, err := store.GetByID(ctx, fetching.ID)
		if err != nil {
			t.Fatalf("GetByID fetching: %v", err)
		}
		if unchanged.Status != queue.StatusFetching {
			t.Fatalf("expected fetching item untouched, got %s", unchanged.Status)
		}
		if unchanged.LastHeartbeat == nil || !unchanged.LastHeartbeat.Equal(past) {
			t.Fatalf("expected fetching heartbeat unchanged, got %v", unchanged.LastHeartbeat)
		}
	})

	t.Run("retry limit fails crash-looping item", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		const maxRetries = 2

		item, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/crashloop01", "yt:crashloop01", "")
		if err != nil {
			t.Fatalf("NewURL: %v", err)
		}

		// Simulate a worker that dies mid-fetch every time: the item keeps
		// going stale at the same processing status.
		goStale := func() {
			current, err := store.GetByID(ctx, item.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			past := time.Now().Add(-2 * time.Hour).UTC()
			current.Status = queue.StatusFetching
			current.LastHeartbeat = &past
			if err := store.Update(ctx, current); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}

		for attempt := 1; attempt <= maxRetries; attempt++ {
			goStale()
			reclaimed, exhausted, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), maxRetries, queue.StatusFetching)
			if err != nil {
				t.Fatalf("ReclaimStaleProcessing attempt %d: %v", attempt, err)
			}
			if reclaimed != 1 || exhausted != 0 {
				t.Fatalf("attempt %d: expected 1 reclaimed and 0 exhausted, got %d and %d", attempt, reclaimed, exhausted)
			}
			current, err := store.GetByID(ctx, item.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if current.Status != queue.StatusPending {
				t.Fatalf("attempt %d: expected pending after reclaim, got %s", attempt, current.Status)
			}
			if current.RetryCount != attempt {
				t.Fatalf("attempt %d: expected retry count %d, got %d", attempt, attempt, current.RetryCount)
			}
		}

		// Budget spent; the next stale pass must fail the item, not re-queue it.
		goStale()
		reclaimed, exhausted, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), maxRetries, queue.StatusFetching)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing final: %v", err)
		}
		if reclaimed != 0 || exhausted != 1 {
			t.Fatalf("expected 0 reclaimed and 1 exhausted, got %d and %d", reclaimed, exhausted)
		}

		final, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID final: %v", err)
		}
		if final.Status != queue.StatusFailed {
			t.Fatalf("expected failed after retry limit, got %s", final.Status)
		}
		if final.ErrorMessage == "" {
			t.Fatal("expected error message on retry-exhausted item")
		}
		if final.LastHeartbeat != nil {
			t.Fatalf("expected heartbeat cleared, got %v", final.LastHeartbeat)
		}

		// A manual retry restarts the budget.
		if _, err := store.RetryFailed(ctx, item.ID); err != nil {
			t.Fatalf("RetryFailed: %v", err)
		}
		retried, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID retried: %v", err)
		}
		if retried.Status != queue.StatusPending {
			t.Fatalf("expected pending after manual retry, got %s", retried.Status)
		}
		if retried.RetryCount != 0 {
			t.Fatalf("expected retry count reset to 0, got %d", retried.RetryCount)
		}
	})
}

func TestUpdateProgressPreservesHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/progr000001", "yt:progr000001", "")
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	item.Status = queue.StatusAnalyzing
	past := time.Now().Add(-5 * time.Minute).UTC()
	item.LastHeartbeat = &past
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID before progress: %v", err)
	}
	if before.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set before progress update")
	}
	origHeartbeat := *before.LastHeartbeat

	before.ProgressStage = "Analyze"
	before.ProgressPercent = 42.5
	before.ProgressMessage = "Extracting features"
	if err := store.UpdateProgress(ctx, before); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID after progress: %v", err)
	}
	if after.LastHeartbeat == nil {
		t.Fatal("expected heartbeat preserved after progress update")
	}
	if !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("expected heartbeat unchanged, before %v after %v", origHeartbeat, after.LastHeartbeat)
	}
	if after.ProgressStage != "Analyze" || after.ProgressMessage != "Extracting features" {
		t.Fatalf("expected progress fields persisted, got stage=%q message=%q", after.ProgressStage, after.ProgressMessage)
	}
	if after.ProgressPercent != 42.5 {
		t.Fatalf("expected progress percent 42.5, got %f", after.ProgressPercent)
	}
}

func TestOpenRejectsNewerDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.QueueDatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	if _, err := queue.Open(cfg); err == nil {
		t.Fatal("expected error opening database written by a newer binary")
	}
}
