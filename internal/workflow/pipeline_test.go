package workflow_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/notifications"
	"soundcheck/internal/profiler"
	"soundcheck/internal/queue"
	"soundcheck/internal/reporter"
	"soundcheck/internal/testsupport"
	"soundcheck/internal/workflow"
)

// TestPipelineProducesGapReport drives the queue end to end with the real
// profiler and reporter. The fetch and analysis stages are stubbed so no
// external tools run, but analysis results land in the real library store.
func TestPipelineProducesGapReport(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	lib := testsupport.MustOpenLibrary(t, cfg)
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzed := 0
	fetcher := newStubStage("fetcher")
	fetcher.executeHook = func(item *queue.Item) {
		item.AudioPath = "/tmp/staged.m4a"
		item.SetProgressComplete("Fetched", "Audio staged")
	}
	analyzer := newStubStage("analyzer")
	analyzer.executeHook = func(item *queue.Item) {
		kind := library.KindCandidate
		if item.Kind == queue.KindReference {
			kind = library.KindReference
		}
		track := &library.Track{
			Fingerprint: item.Fingerprint,
			Title:       fmt.Sprintf("Track %s", item.Fingerprint),
			Kind:        kind,
		}
		if err := lib.SaveTrack(ctx, track); err != nil {
			t.Errorf("save track: %v", err)
			return
		}
		shift := float64(analyzed) * 0.4
		analyzed++
		if err := lib.SaveFeatures(ctx, featureFixture(track.ID, shift)); err != nil {
			t.Errorf("save features: %v", err)
			return
		}
		if item.Kind == queue.KindReference {
			set, err := lib.CreateSet(ctx, item.SetName, "", "")
			if err != nil {
				t.Errorf("create set: %v", err)
				return
			}
			if err := lib.AddTrackToSet(ctx, set.ID, track.ID); err != nil {
				t.Errorf("add to set: %v", err)
				return
			}
		}
		item.TrackID = track.ID
		item.SetProgressComplete("Analyzed", "Features extracted")
	}

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Fetcher:  fetcher,
		Analyzer: analyzer,
		Profiler: profiler.NewWithDependencies(cfg, store, lib, nil, notifier),
		Reporter: reporter.NewWithDependencies(cfg, store, lib, nil, notifier),
	})
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	for i := 0; i < cfg.Profile.MinTracks; i++ {
		url := fmt.Sprintf("https://youtu.be/ref-%d", i)
		ref, _, err := store.NewURL(ctx, queue.KindReference, url, fmt.Sprintf("fp-e2e-ref-%d", i), "house")
		if err != nil {
			t.Fatalf("NewURL reference %d: %v", i, err)
		}
		waitForStatus(t, store, ref.ID, queue.StatusCompleted)
	}
	waitForEvent(t, notifier, notifications.EventProfileUpdated)

	candidate, _, err := store.NewURL(ctx, queue.KindCandidate, "https://youtu.be/demo", "fp-e2e-cand", "house")
	if err != nil {
		t.Fatalf("NewURL candidate: %v", err)
	}
	done := waitForStatus(t, store, candidate.ID, queue.StatusCompleted)

	meta := queue.MetadataFromJSON(done.MetadataJSON, done.Title)
	if meta.ReportPath == "" {
		t.Fatal("expected report path in item metadata")
	}
	if _, err := os.Stat(meta.ReportPath); err != nil {
		t.Fatalf("expected report file on disk: %v", err)
	}
	if notifier.count(notifications.EventReportReady) != 1 {
		t.Fatalf("expected one report notification, got %d", notifier.count(notifications.EventReportReady))
	}
}
