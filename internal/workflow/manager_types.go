package workflow

import (
	"log/slog"

	"soundcheck/internal/queue"
	"soundcheck/internal/stage"
)

// StageHandler is the contract stage implementations satisfy.
type StageHandler = stage.Handler

// loggerAware marks handlers that accept an item-scoped logger.
type loggerAware = stage.LoggerAware

// StageSet bundles the concrete workflow handlers the manager orchestrates:
// download, feature extraction, profile comparison, and report generation.
type StageSet struct {
	Fetcher  stage.Handler
	Analyzer stage.Handler
	Profiler stage.Handler
	Reporter stage.Handler
}

// pipelineStage ties a handler to the status triple that drives it: items at
// startStatus are claimed, held at processingStatus while the handler runs,
// and advanced to doneStatus on success.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type laneKind string

const (
	laneForeground laneKind = "foreground"
	laneBackground laneKind = "background"
)

// laneState is one lane's stage table plus the lookup indexes finalize
// derives from it.
type laneState struct {
	kind                 laneKind
	name                 string
	stages               []pipelineStage
	statusOrder          []queue.Status
	stageByStart         map[queue.Status]pipelineStage
	processingStatuses   []queue.Status
	logger               *slog.Logger
	notificationsEnabled bool
	runReclaimer         bool
}

// finalize rebuilds the start-status index and the deduplicated processing
// status list after the stage table changes.
func (l *laneState) finalize() {
	if l == nil {
		return
	}

	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]queue.Status, 0, len(l.stages))
	l.processingStatuses = nil

	seen := make(map[queue.Status]struct{})
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)

		if stg.processingStatus == "" {
			continue
		}
		if _, ok := seen[stg.processingStatus]; ok {
			continue
		}
		seen[stg.processingStatus] = struct{}{}
		l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
