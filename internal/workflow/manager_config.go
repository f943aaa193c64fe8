package workflow

import "soundcheck/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Acquisition keeps the foreground lane to itself so downloads are never
// starved by long analysis runs; everything after fetch runs in the background
// lane.
func (m *Manager) ConfigureStages(set StageSet) {
	foreground := &laneState{kind: laneForeground, name: "foreground", notificationsEnabled: true}
	background := &laneState{kind: laneBackground, name: "background", notificationsEnabled: false}

	if set.Fetcher != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "fetcher",
			handler:          set.Fetcher,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusFetched,
		})
	}
	if set.Analyzer != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "analyzer",
			handler:          set.Analyzer,
			startStatus:      queue.StatusFetched,
			processingStatus: queue.StatusAnalyzing,
			doneStatus:       queue.StatusAnalyzed,
		})
	}
	if set.Profiler != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "profiler",
			handler:          set.Profiler,
			startStatus:      queue.StatusAnalyzed,
			processingStatus: queue.StatusProfiling,
			doneStatus:       queue.StatusProfiled,
		})
	}
	if set.Reporter != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "reporter",
			handler:          set.Reporter,
			startStatus:      queue.StatusProfiled,
			processingStatus: queue.StatusReporting,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(foreground.stages) > 0 {
		foreground.finalize()
		lanes[foreground.kind] = foreground
		order = append(order, foreground.kind)
	}
	if len(background.stages) > 0 {
		background.finalize()
		lanes[background.kind] = background
		order = append(order, background.kind)
	}

	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
