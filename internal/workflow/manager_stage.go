package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// persistEpisode writes episode state through the commit supervisor so a
// transient database failure cannot strand a status transition. The claim
// itself is atomic in the store; everything after it retries here.
func (m *Manager) persistEpisode(ctx context.Context, operation string, episode *queue.Episode) error {
	return m.supervisor.Run(ctx, operation, func(ctx context.Context) error {
		return m.updateEpisode(ctx, episode)
	})
}

func (m *Manager) processEpisode(ctx context.Context, episode *queue.Episode) error {
	requestID := uuid.NewString()
	stageCtx := services.WithEpisodeID(ctx, episode.ID)
	stageCtx = services.WithStage(stageCtx, "assembly")
	stageCtx = services.WithRequestID(stageCtx, requestID)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	claimed, err := m.store.Transition(stageCtx, episode.ID, queue.StatusPending, queue.StatusProcessing)
	if err != nil {
		stageLogger.Error("failed to claim episode", logging.Error(err))
		m.setLastError(err)
		return err
	}
	if !claimed {
		return nil
	}

	episode, err = m.store.GetByID(stageCtx, episode.ID)
	if err != nil || episode == nil {
		if err == nil {
			err = fmt.Errorf("episode vanished after claim")
		}
		m.setLastError(err)
		return err
	}
	episode.SetProgress("Assembling", "Assembly started", 0)
	episode.ErrorMessage = ""
	if err := m.persistEpisode(stageCtx, "persist claim", episode); err != nil {
		stageLogger.Error("failed to persist processing transition", logging.Error(err))
		m.setLastError(err)
		return err
	}
	m.setLastEpisode(episode)

	return m.executeStage(stageCtx, stageLogger, episode)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, episode *queue.Episode) error {
	stageStart := time.Now()
	stageLogger.Info("assembly started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("title", strings.TrimSpace(episode.Title)),
	)

	if err := m.handler.Prepare(ctx, episode); err != nil {
		m.handleStageFailure(ctx, episode, err)
		m.setLastError(err)
		return err
	}
	if err := m.persistEpisode(ctx, "persist preparation", episode); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, episode)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("assembly interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, episode, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if episode.Status == queue.StatusProcessing {
		episode.Status = queue.StatusProcessed
	}
	episode.LastHeartbeat = nil
	if episode.ProgressPercent < 100 {
		episode.SetProgressComplete("Processed", "Assembly complete")
	}
	if err := m.persistEpisode(ctx, "persist completion", episode); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("assembly completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(episode.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastEpisode(episode)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, episode *queue.Episode) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, episode.ID)

	execErr := m.handler.Execute(ctx, episode)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleStageFailure(ctx context.Context, episode *queue.Episode, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := classifyStageFailure(stageErr)
	episode.SetFailed(message)

	logger.Error("assembly failed",
		logging.String("error_message", message),
		logging.String("error_kind", string(services.Kind(stageErr))),
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Error(stageErr),
	)

	if err := m.persistEpisode(ctx, "persist failure", episode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastEpisode(episode)
}

func classifyStageFailure(stageErr error) string {
	if stageErr == nil {
		return "assembly failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = "assembly failed"
	}
	return message
}
