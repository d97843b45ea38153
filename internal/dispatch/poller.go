package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

// Target accepts redispatched assembly requests. The daemon satisfies this
// directly when the poller runs in-process.
type Target interface {
	Accept(ctx context.Context, episodeID int64) error
}

// Poller redrives queued assembly jobs. Young jobs retry on a short
// cadence; once a job has waited past the escalation age the cadence
// stretches, and jobs older than the abandonment window fail their episode.
type Poller struct {
	cfg    config.Dispatch
	store  *queue.Store
	target Target
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoller(cfg config.Dispatch, store *queue.Store, target Target, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		cfg:    cfg,
		store:  store,
		target: target,
		logger: logging.NewComponentLogger(logger, "dispatch-poller"),
	}
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("dispatch poller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(runCtx)
	return nil
}

// Stop terminates the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()
	interval := time.Duration(p.cfg.PollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Sweep(ctx, time.Now()); err != nil {
				p.logger.Warn("dispatch sweep failed", logging.Error(err))
			}
		}
	}
}

// Sweep examines every queued job once and acts on those that are due.
// Exported so tests and maintenance commands can drive it with a fixed
// clock.
func (p *Poller) Sweep(ctx context.Context, now time.Time) error {
	jobs, err := p.store.QueuedJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.sweepJob(ctx, job, now)
	}
	return nil
}

func (p *Poller) sweepJob(ctx context.Context, job *queue.AssemblyJob, now time.Time) {
	age := job.Age(now)

	if age >= time.Duration(p.cfg.AbandonAfterHours)*time.Hour {
		p.abandon(ctx, job, age)
		return
	}
	if !p.due(job, now, age) {
		return
	}

	if err := p.target.Accept(ctx, job.EpisodeID); err != nil {
		if markErr := p.store.MarkJobAttempt(ctx, job.ID, err.Error()); markErr != nil {
			p.logger.Warn("failed to record dispatch attempt",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(markErr))
		}
		p.logger.Info("redispatch attempt failed",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int64(logging.FieldEpisodeID, job.EpisodeID),
			logging.Int("attempts", job.Attempts+1),
			logging.Error(err))
		return
	}

	if err := p.store.ResolveJob(ctx, job.ID, queue.JobDone, ""); err != nil {
		p.logger.Warn("failed to resolve dispatched job",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
		return
	}
	p.logger.Info("queued assembly job dispatched",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldEpisodeID, job.EpisodeID),
		logging.String(logging.FieldEventType, "assembly_redispatched"))
}

// due applies the cadence: early retry interval while the job is young,
// the late interval once it has waited past the escalation age.
func (p *Poller) due(job *queue.AssemblyJob, now time.Time, age time.Duration) bool {
	if job.LastAttemptAt == nil {
		return true
	}
	sinceAttempt := now.Sub(*job.LastAttemptAt)
	if age < time.Duration(p.cfg.EscalateAfterSeconds)*time.Second {
		return sinceAttempt >= time.Duration(p.cfg.EarlyRetrySeconds)*time.Second
	}
	return sinceAttempt >= time.Duration(p.cfg.LateRetrySeconds)*time.Second
}

func (p *Poller) abandon(ctx context.Context, job *queue.AssemblyJob, age time.Duration) {
	message := fmt.Sprintf("assembly could not be dispatched after %s; contact support or retry the episode", age.Round(time.Hour))
	if err := p.store.ResolveJob(ctx, job.ID, queue.JobAbandoned, message); err != nil {
		p.logger.Warn("failed to abandon stale job",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
		return
	}

	episode, err := p.store.GetByID(ctx, job.EpisodeID)
	if err != nil || episode == nil {
		p.logger.Warn("abandoned job has no episode",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int64(logging.FieldEpisodeID, job.EpisodeID),
			logging.Error(err))
		return
	}
	episode.SetFailed(message)
	if err := p.store.Update(ctx, episode); err != nil {
		p.logger.Warn("failed to fail episode for abandoned job",
			logging.Int64(logging.FieldEpisodeID, job.EpisodeID),
			logging.Error(err))
		return
	}
	p.logger.Error("assembly job abandoned",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldEpisodeID, job.EpisodeID),
		logging.String(logging.FieldEventType, "assembly_abandoned"),
		logging.Duration("waited", age))
}
