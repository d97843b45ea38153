package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mixdown/internal/commit"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/stage"
)

// Manager coordinates episode processing using the registered assembly handler.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	handler      stage.Handler
	pollInterval time.Duration

	heartbeat  *HeartbeatMonitor
	supervisor *commit.Supervisor

	// updateEpisode is the raw store write the commit supervisor retries.
	updateEpisode func(ctx context.Context, episode *queue.Episode) error

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastEpisode *queue.Episode
}

// NewManager constructs a workflow manager around a single assembly handler.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		handler:      handler,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		supervisor:    commit.NewSupervisor(commit.PolicyFromConfig(cfg.Commit), store, logger),
		updateEpisode: store.Update,
	}
	return m
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.handler == nil {
		m.mu.Unlock()
		return errors.New("assembly handler not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, m.logger); err != nil {
			m.logger.Warn("reclaim stale processing failed; stuck episodes may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		episode, err := m.store.NextForStatuses(ctx, queue.StatusPending)
		if err != nil {
			m.handleFetchError(ctx, err)
			continue
		}
		if episode == nil {
			m.waitForEpisodeOrShutdown(ctx)
			continue
		}

		if err := m.processEpisode(ctx, episode); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleFetchError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next episode",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForEpisodeOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastEpisode(episode *queue.Episode) {
	m.mu.Lock()
	if episode != nil {
		cp := *episode
		m.lastEpisode = &cp
	} else {
		m.lastEpisode = nil
	}
	m.mu.Unlock()
}
