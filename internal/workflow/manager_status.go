package workflow

import (
	"context"

	"soundcheck/internal/logging"
	"soundcheck/internal/queue"
	"soundcheck/internal/stage"
)

// StatusSummary is the workflow snapshot served to status queries: whether
// lanes are running, the last processed item, queue counts, and per-stage
// health.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status assembles the current snapshot. Stage health checks run outside the
// manager lock since handlers may touch the filesystem or external binaries.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	var stageSet []pipelineStage
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			stageSet = append(stageSet, lane.stages...)
		}
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		snapshot := *lastItem
		summary.LastItem = &snapshot
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		snapshot := *item
		m.lastItem = &snapshot
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
