// Package recovery restores queue consistency after a daemon crash.
//
// At startup it inspects processing episodes whose heartbeats went silent
// and moves each one to the error state with guidance that depends on
// durable artifact state: episodes whose source audio survives can be
// retried as-is, the rest need their recording uploaded again.
// Intermediate stage artifacts are left in place; a retried run reuses
// whatever survived.
package recovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mixdown/internal/artifacts"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

// Scanner reconciles episodes orphaned by an unclean shutdown.
type Scanner struct {
	store     *queue.Store
	artifacts artifacts.Store
	timeout   time.Duration
	logger    *slog.Logger
}

func NewScanner(store *queue.Store, artifactStore artifacts.Store, heartbeatTimeout time.Duration, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		store:     store,
		artifacts: artifactStore,
		timeout:   heartbeatTimeout,
		logger:    logging.NewComponentLogger(logger, "recovery"),
	}
}

// Run scans once and repairs every stale processing episode. It returns
// the number of episodes failed as retryable and the number that need
// their source re-uploaded.
func (s *Scanner) Run(ctx context.Context) (retryable, lost int, err error) {
	cutoff := time.Now().Add(-s.timeout)
	stale, err := s.store.StaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	for _, episode := range stale {
		if err := ctx.Err(); err != nil {
			return retryable, lost, err
		}
		if s.repair(ctx, episode) {
			retryable++
		} else {
			lost++
		}
	}

	if retryable > 0 || lost > 0 {
		s.logger.Info("crash recovery complete",
			logging.Int("retryable", retryable),
			logging.Int("lost", lost),
			logging.String(logging.FieldEventType, "recovery_complete"))
	}
	return retryable, lost, nil
}

// repair fails an interrupted episode with a retryable message when its
// source survives in the artifact store, otherwise with re-upload
// guidance. Reports true for the retryable case.
func (s *Scanner) repair(ctx context.Context, episode *queue.Episode) bool {
	logger := s.logger.With(logging.Int64(logging.FieldEpisodeID, episode.ID))

	if s.sourceAvailable(ctx, episode) {
		episode.SetFailed("assembly was interrupted by a restart; the uploaded audio is intact, retry the episode to assemble it again")
		if err := s.store.Update(ctx, episode); err != nil {
			logger.Error("failed to record interrupted episode", logging.Error(err))
			return false
		}
		logger.Info("interrupted episode marked retryable",
			logging.String(logging.FieldEventType, "recovery_retryable"))
		return true
	}

	episode.SetFailed("assembly was interrupted and the source audio is no longer available; re-upload the recording")
	if err := s.store.Update(ctx, episode); err != nil {
		logger.Error("failed to record unrecoverable episode", logging.Error(err))
	}
	logger.Warn("interrupted episode unrecoverable, source missing",
		logging.String(logging.FieldEventType, "recovery_lost"))
	return false
}

func (s *Scanner) sourceAvailable(ctx context.Context, episode *queue.Episode) bool {
	uri := strings.TrimSpace(episode.SourceAudioURI)
	if uri == "" {
		return false
	}
	key, err := artifacts.URIToKey(uri)
	if err != nil {
		return false
	}
	exists, err := s.artifacts.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("artifact probe failed during recovery",
			logging.Int64(logging.FieldEpisodeID, episode.ID),
			logging.Error(err))
		return false
	}
	return exists
}
