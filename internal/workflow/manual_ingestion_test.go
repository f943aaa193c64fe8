package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
	"soundcheck/internal/testsupport"
	"soundcheck/internal/workflow"
)

// Local file submissions enter the queue already fetched, so the download
// stage must never run for them.
func TestLocalFileIngestionSkipsFetchStage(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := filepath.Join(t.TempDir(), "demo-track.wav")
	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	item, created, err := store.NewFile(ctx, queue.KindReference, src, "house")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh queue item")
	}
	if item.Status != queue.StatusFetched {
		t.Fatalf("expected file item to enter at fetched, got %s", item.Status)
	}
	if item.AudioPath != src {
		t.Fatalf("expected audio path %q, got %q", src, item.AudioPath)
	}

	fetcher, analyzer, profiler, reporter := passthroughStages()
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{
		Fetcher:  fetcher,
		Analyzer: analyzer,
		Profiler: profiler,
		Reporter: reporter,
	})
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if fetcher.executions() != 0 {
		t.Fatalf("expected fetch stage to be skipped, ran %d times", fetcher.executions())
	}
	if analyzer.executions() != 1 {
		t.Fatalf("expected analysis to run once, ran %d times", analyzer.executions())
	}
}

func TestLocalFileIngestionDeduplicatesActivePath(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "demo-track.wav")
	if err := os.WriteFile(src, []byte("riff"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	first, created, err := store.NewFile(ctx, queue.KindCandidate, src, "house")
	if err != nil || !created {
		t.Fatalf("first NewFile: created=%v err=%v", created, err)
	}
	second, created, err := store.NewFile(ctx, queue.KindCandidate, src, "house")
	if err != nil {
		t.Fatalf("second NewFile: %v", err)
	}
	if created {
		t.Fatal("expected duplicate path to be rejected while active")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing item %d, got %d", first.ID, second.ID)
	}
}
