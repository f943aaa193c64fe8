package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"soundcheck/internal/config"
	"soundcheck/internal/library"
	"soundcheck/internal/notifications"
	"soundcheck/internal/queue"
	"soundcheck/internal/stage"
	"soundcheck/internal/testsupport"
)

// stubStage is a scriptable stage handler for manager tests.
type stubStage struct {
	name        string
	prepareHook func(*queue.Item)
	executeHook func(*queue.Item)
	prepareErr  error
	executeErr  error
	health      stage.Health

	mu       sync.Mutex
	executed int
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		s.prepareHook(item)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.executed++
	s.mu.Unlock()
	if s.executeHook != nil {
		s.executeHook(item)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubStage) executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, e := range r.events {
		if e == event {
			total++
		}
	}
	return total
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	return cfg
}

// passthroughStages wires stub handlers that mimic the state the real stages
// leave behind.
func passthroughStages() (fetcher, analyzer, profiler, reporter *stubStage) {
	fetcher = newStubStage("fetcher")
	fetcher.executeHook = func(item *queue.Item) {
		item.AudioPath = "/tmp/staged.m4a"
		item.SetProgressComplete("Fetched", "Audio staged")
	}
	analyzer = newStubStage("analyzer")
	analyzer.executeHook = func(item *queue.Item) {
		item.TrackID = 1
		item.SetProgressComplete("Analyzed", "Features extracted")
	}
	profiler = newStubStage("profiler")
	profiler.executeHook = func(item *queue.Item) {
		item.ProfileName = item.SetName
		item.SetProgressComplete("Profiled", "Reference profile is current")
	}
	reporter = newStubStage("reporter")
	reporter.executeHook = func(item *queue.Item) {
		item.SetProgressComplete("Completed", "Gap report written")
	}
	return fetcher, analyzer, profiler, reporter
}

// waitForEvent polls the notifier until the event shows up or the deadline
// passes.
func waitForEvent(t *testing.T, notifier *recordingNotifier, event notifications.Event) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for notifier.count(event) == 0 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", event)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// waitForStatus polls the queue until the item reaches status or the deadline
// passes.
func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			current, _ := store.GetByID(context.Background(), id)
			if current != nil {
				t.Fatalf("timed out waiting for %s, item is %s (%s)", want, current.Status, current.ErrorMessage)
			}
			t.Fatalf("timed out waiting for %s", want)
		default:
		}
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item.Status == want {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func featureFixture(trackID int64, shift float64) *library.Features {
	return &library.Features{
		TrackID:             trackID,
		SchemaVersion:       library.FeatureSchemaVersion,
		BPM:                 121 + 5*shift,
		BPMConfidence:       0.8,
		IntegratedLUFS:      -8.2 + shift,
		LoudnessRange:       5.1 + 0.2*shift,
		TruePeakDB:          -0.7,
		SamplePeakDB:        -0.9,
		RMSDB:               -11.2 + shift,
		CrestDB:             10.7 - 0.3*shift,
		ZeroCrossRate:       0.07,
		SpectralCentroidHz:  1850 + 220*shift,
		SpectralRolloffHz:   6300 + 380*shift,
		SpectralBandwidthHz: 2120,
		SpectralFlatness:    0.2,
		SpectralFluxMean:    0.86,
		StereoCorrelation:   0.64,
		StereoWidth:         0.71,
		MidSideRatioDB:      -7.6,
		Chroma:              make([]float64, 12),
		BandEnergies: map[string]float64{
			"sub": -17.2 + shift, "bass": -5.6 + shift, "lowmid": -8.6 + shift,
			"mid": -6.6 + shift, "highmid": -9.6 + shift, "presence": -12.6 + shift,
			"air": -15.6 + shift,
		},
	}
}
