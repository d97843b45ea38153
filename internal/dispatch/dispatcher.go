package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"mixdown/internal/ipc"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

// Result reports how a submission was handled.
type Result struct {
	// Queued is true when the daemon could not take the work and the
	// request was persisted for redispatch instead.
	Queued  bool
	Message string
}

// Dispatcher submits assembly requests over IPC, degrading to the durable
// job queue when the daemon cannot be reached.
type Dispatcher struct {
	store      *queue.Store
	socketPath string
	logger     *slog.Logger
}

func NewDispatcher(store *queue.Store, socketPath string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		store:      store,
		socketPath: socketPath,
		logger:     logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Dispatch hands a pending episode to the daemon. Hand-off failure queues
// the request and returns a successful queued Result; the error return is
// reserved for failures of the queue fallback itself.
func (d *Dispatcher) Dispatch(ctx context.Context, episodeID int64) (Result, error) {
	episode, err := d.store.GetByID(ctx, episodeID)
	if err != nil {
		return Result{}, err
	}
	if episode == nil {
		return Result{}, fmt.Errorf("episode %d not found", episodeID)
	}

	if err := d.submit(episode); err == nil {
		return Result{Message: "assembly started"}, nil
	} else {
		d.logger.Warn("daemon hand-off failed, queueing assembly job",
			logging.Int64(logging.FieldEpisodeID, episodeID),
			logging.Error(err))
		return d.queueJob(ctx, episode, err)
	}
}

func (d *Dispatcher) submit(episode *queue.Episode) error {
	client, err := ipc.Dial(d.socketPath)
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}
	defer client.Close()

	resp, err := client.Assemble(ipc.AssembleRequest{
		EpisodeID:      episode.ID,
		TemplateID:     episode.TemplateID,
		SourceAudioRef: episode.SourceAudioURI,
		UserID:         episode.UserID,
	})
	if err != nil {
		return fmt.Errorf("assemble call: %w", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("daemon rejected assembly: %s", resp.Message)
	}
	return nil
}

func (d *Dispatcher) queueJob(ctx context.Context, episode *queue.Episode, cause error) (Result, error) {
	existing, err := d.store.QueuedJobForEpisode(ctx, episode.ID)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		if _, err := d.store.EnqueueJob(ctx, episode.ID, episode.UserID, episode.TemplateID, episode.SourceAudioURI); err != nil {
			return Result{}, fmt.Errorf("queue assembly job: %w", err)
		}
	}

	episode.SetProgress("Queued", "Waiting for an available worker", 0)
	if err := d.store.Update(ctx, episode); err != nil {
		d.logger.Warn("failed to record queued progress",
			logging.Int64(logging.FieldEpisodeID, episode.ID),
			logging.Error(err))
	}

	d.logger.Info("assembly job queued",
		logging.Int64(logging.FieldEpisodeID, episode.ID),
		logging.String(logging.FieldEventType, "assembly_queued"),
		logging.Error(cause))
	return Result{Queued: true, Message: "assembly queued"}, nil
}
