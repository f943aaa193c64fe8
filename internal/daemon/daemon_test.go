package daemon_test

import (
	"context"
	"testing"
	"time"

	"soundcheck/internal/daemon"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
	"soundcheck/internal/stage"
	"soundcheck/internal/testsupport"
	"soundcheck/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newTestDaemon(t *testing.T) (*daemon.Daemon, *queue.Store, *library.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := testsupport.MustOpenLibrary(t, cfg)

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Fetcher:  noopStage{},
		Analyzer: noopStage{},
		Profiler: noopStage{},
		Reporter: noopStage{},
	})
	d, err := daemon.New(cfg, store, lib, logger, mgr, "", nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, store, lib
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.QueueDBPath == "" || status.LibraryDBPath == "" {
		t.Fatalf("expected database paths in status: %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonAddSourceAndQueueOps(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	item, created, err := d.AddSource(ctx, "https://youtu.be/dQw4w9WgXcQ", queue.KindCandidate, "")
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if !created || item == nil {
		t.Fatal("expected new queue item")
	}

	items, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue length = %d, want 1", len(items))
	}

	removed, err := d.RemoveQueueItems(ctx, []int64{item.ID})
	if err != nil {
		t.Fatalf("RemoveQueueItems: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestDaemonSetLifecycle(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	set, err := d.CreateSet(ctx, "deep-house", "late-night sets", "house")
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if set.Name != "deep-house" {
		t.Fatalf("set name = %q", set.Name)
	}

	sets, err := d.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("set count = %d, want 1", len(sets))
	}

	count, record, err := d.SetDetails(ctx, set)
	if err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	if count != 0 || record != nil {
		t.Fatalf("expected empty unprofiled set, got count=%d profiled=%v", count, record != nil)
	}

	removed, err := d.RemoveSet(ctx, "deep-house")
	if err != nil {
		t.Fatalf("RemoveSet: %v", err)
	}
	if !removed {
		t.Fatal("expected set to be removed")
	}
	if removed, _ := d.RemoveSet(ctx, "deep-house"); removed {
		t.Fatal("second removal should report not found")
	}
}

func TestDaemonBuildProfileRequiresSet(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	if _, err := d.BuildProfile(context.Background(), "missing-set"); err == nil {
		t.Fatal("expected error for unknown set")
	}
}
