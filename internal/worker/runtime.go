package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mixdown/internal/artifacts"
	"mixdown/internal/commit"
	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/mixer"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/services/transcription"
	"mixdown/internal/stage"
	"mixdown/internal/staging"
)

// ErrCancelled marks an assembly aborted by an explicit user request.
var ErrCancelled = errors.New("assembly cancelled")

// Runtime is the assembly stage handler the workflow manager drives.
type Runtime struct {
	cfg         *config.Config
	store       *queue.Store
	artifacts   artifacts.Store
	transcriber transcription.Transcriber
	synth       mixer.Synthesizer
	supervisor  *commit.Supervisor
	logger      *slog.Logger
}

var _ stage.Handler = (*Runtime)(nil)

func NewRuntime(
	cfg *config.Config,
	store *queue.Store,
	artifactStore artifacts.Store,
	transcriber transcription.Transcriber,
	synth mixer.Synthesizer,
	logger *slog.Logger,
) *Runtime {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runtime{
		cfg:         cfg,
		store:       store,
		artifacts:   artifactStore,
		transcriber: transcriber,
		synth:       synth,
		supervisor:  commit.NewSupervisor(commit.PolicyFromConfig(cfg.Commit), store, logger),
		logger:      logging.NewComponentLogger(logger, "worker"),
	}
}

// Prepare validates the episode before any audio work starts.
func (r *Runtime) Prepare(ctx context.Context, episode *queue.Episode) error {
	if strings.TrimSpace(episode.SourceAudioURI) == "" {
		return services.Wrap(services.ErrValidation, "assembly", "prepare",
			"episode has no source audio; upload the recording before assembling", nil)
	}
	if strings.TrimSpace(episode.TemplateID) == "" {
		return services.Wrap(services.ErrValidation, "assembly", "prepare",
			"episode has no template assigned", nil)
	}
	episode.SetProgress("Assembling", "Preparing workspace", 0)
	return nil
}

// Execute runs the assembly substages in order, persisting each substage's
// canonical artifact URI before the next one starts.
func (r *Runtime) Execute(ctx context.Context, episode *queue.Episode) error {
	logger := logging.WithContext(ctx, r.logger)
	workDir := staging.WorkspaceDir(r.cfg.Paths.StagingDir, episode.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransientStorage, "assembly", "workspace",
			"creating staging workspace", err)
	}

	steps := []struct {
		name    string
		percent float64
		run     func(context.Context, *assemblyState) error
	}{
		{"Fetching source", 5, r.fetchSource},
		{"Transcribing", 15, r.transcribe},
		{"Editing", 40, r.edit},
		{"Mixing", 75, r.mix},
		{"Finalizing", 95, r.finalize},
	}

	state := &assemblyState{episode: episode, workDir: workDir}
	for _, step := range steps {
		if err := r.checkCancelled(ctx, episode); err != nil {
			return err
		}
		episode.SetProgress("Assembling", step.name, step.percent)
		if err := r.persistEpisode(ctx, episode); err != nil {
			return err
		}
		logger.Info("assembly substage started", logging.String("substage", step.name))
		if err := step.run(ctx, state); err != nil {
			return err
		}
		if err := r.persistEpisode(ctx, episode); err != nil {
			return err
		}
	}

	episode.SetProgressComplete("Processed", "Assembly complete")
	return nil
}

// HealthCheck verifies the stores the runtime depends on are reachable.
func (r *Runtime) HealthCheck(ctx context.Context) stage.Health {
	const name = "assembly"
	if err := r.store.Ping(ctx); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("queue database unreachable: %v", err))
	}
	if err := os.MkdirAll(r.cfg.Paths.StagingDir, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging directory unavailable: %v", err))
	}
	if r.transcriber == nil {
		return stage.Unhealthy(name, "transcription client not configured")
	}
	return stage.Healthy(name)
}

// checkCancelled refreshes the cancel flag from durable state. Substage
// boundaries are the only cancellation points; a running substage finishes.
func (r *Runtime) checkCancelled(ctx context.Context, episode *queue.Episode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fresh, err := r.store.GetByID(ctx, episode.ID)
	if err != nil {
		return err
	}
	if fresh != nil && fresh.CancelRequested {
		episode.CancelRequested = true
		return services.Wrap(services.ErrValidation, "assembly", "cancel",
			"assembly cancelled by user request", ErrCancelled)
	}
	return nil
}

// persistEpisode writes episode state through the commit supervisor so a
// flaky database does not lose substage results.
func (r *Runtime) persistEpisode(ctx context.Context, episode *queue.Episode) error {
	return r.supervisor.Run(ctx, "persist episode", func(ctx context.Context) error {
		return r.store.Update(ctx, episode)
	})
}
