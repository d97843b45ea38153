// Package daemonrun wires configuration, storage, workers, and transport
// into the running daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"mixdown/internal/artifacts"
	"mixdown/internal/config"
	"mixdown/internal/daemon"
	"mixdown/internal/dispatch"
	"mixdown/internal/ipc"
	"mixdown/internal/logging"
	"mixdown/internal/mixer"
	"mixdown/internal/queue"
	"mixdown/internal/recovery"
	"mixdown/internal/services/speech"
	"mixdown/internal/services/transcription"
	"mixdown/internal/staging"
	"mixdown/internal/worker"
	"mixdown/internal/workflow"
)

// workspaceRetention bounds how long an untouched staging workspace can
// linger before the startup sweep reclaims it.
const workspaceRetention = 7 * 24 * time.Hour

// recoveryThreshold is the operator-tunable staleness cutoff the startup
// crash-recovery scan uses to pick interrupted episodes.
func recoveryThreshold(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Workflow.StaleProcessingMinutes) * time.Minute
}

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the mixdown daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, "mixdown.log")
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "mixdown.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	artifactStore, err := artifacts.NewFSStore(cfg.Paths.ArtifactDir)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	transcriber, err := transcription.New(cfg.Transcription)
	if err != nil {
		return fmt.Errorf("init transcription client: %w", err)
	}
	var synth mixer.Synthesizer
	if synthClient, err := speech.New(cfg.Synthesis); err == nil {
		synth = synthClient
	} else {
		logger.Warn("speech synthesis disabled", logging.Error(err))
	}

	runtime := worker.NewRuntime(cfg, store, artifactStore, transcriber, synth, logger)
	workflowManager := workflow.NewManager(cfg, store, runtime, logger)

	scanner := recovery.NewScanner(store, artifactStore, recoveryThreshold(cfg), logger)
	if retryable, lost, err := scanner.Run(signalCtx); err != nil {
		logger.Warn("crash recovery scan failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database and artifact store access"))
	} else if retryable+lost > 0 {
		logger.Info("crash recovery finished",
			logging.Int("retryable", retryable),
			logging.Int("lost", lost))
	}

	if activeEpisodes, err := store.List(signalCtx, queue.StatusPending, queue.StatusProcessing, queue.StatusError); err != nil {
		logger.Warn("skipping staging cleanup, could not list active episodes", logging.Error(err))
	} else {
		active := make(map[int64]struct{}, len(activeEpisodes))
		for _, episode := range activeEpisodes {
			active[episode.ID] = struct{}{}
		}
		staging.CleanFinished(signalCtx, cfg.Paths.StagingDir, active, logger)
		staging.CleanStale(signalCtx, cfg.Paths.StagingDir, workspaceRetention, logger)
	}

	d, err := daemon.New(cfg, store, workflowManager, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	poller := dispatch.NewPoller(cfg.Dispatch, store, d, logger)
	if err := poller.Start(signalCtx); err != nil {
		return fmt.Errorf("start dispatch poller: %w", err)
	}
	defer poller.Stop()

	socketPath := cfg.Paths.SocketPath
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"))
	}

	<-signalCtx.Done()
	logger.Info("mixdown daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
