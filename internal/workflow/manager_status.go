package workflow

import (
	"context"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastEpisode *queue.Episode
	QueueStats  map[queue.Status]int
	StageHealth stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastEpisode := m.lastEpisode
	handler := m.handler
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, QueueStats: stats}
	if handler != nil {
		summary.StageHealth = handler.HealthCheck(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastEpisode != nil {
		cp := *lastEpisode
		summary.LastEpisode = &cp
	}
	return summary
}
