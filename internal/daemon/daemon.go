package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, wf *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "mixdownd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mixdown daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("mixdown daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mixdown daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports daemon and workflow state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// Accept acknowledges an assembly request for a pending episode. The
// workflow manager picks the row up on its next poll; a stopped manager
// means the request cannot be honored and the caller should queue it.
func (d *Daemon) Accept(ctx context.Context, episodeID int64) error {
	if !d.running.Load() {
		return errors.New("daemon is not processing")
	}
	episode, err := d.store.GetByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if episode == nil {
		return fmt.Errorf("episode %d not found", episodeID)
	}
	if episode.Status != queue.StatusPending {
		return fmt.Errorf("episode %d is %s, not pending", episodeID, episode.Status)
	}
	return nil
}

// ListEpisodes returns episodes filtered by optional statuses.
func (d *Daemon) ListEpisodes(ctx context.Context, statuses []queue.Status) ([]*queue.Episode, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetEpisode fetches a single episode by id.
func (d *Daemon) GetEpisode(ctx context.Context, id int64) (*queue.Episode, error) {
	return d.store.GetByID(ctx, id)
}

// QueuedJobForEpisode returns the queued assembly job for an episode, if any.
func (d *Daemon) QueuedJobForEpisode(ctx context.Context, episodeID int64) (*queue.AssemblyJob, error) {
	return d.store.QueuedJobForEpisode(ctx, episodeID)
}

// RetryErrored resets errored episodes (optionally a subset) back to pending.
func (d *Daemon) RetryErrored(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryErrored(ctx, ids...)
}

// CancelEpisode flags an episode for cooperative cancellation.
func (d *Daemon) CancelEpisode(ctx context.Context, id int64) (bool, error) {
	return d.store.RequestCancel(ctx, id)
}

// RemoveEpisodes deletes episodes by id.
func (d *Daemon) RemoveEpisodes(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// ResetStuck transitions in-flight episodes back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}
