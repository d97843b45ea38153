package config

const (
	defaultStagingDir  = "~/.local/share/mixdown/staging"
	defaultLogDir      = "~/.local/share/mixdown/logs"
	defaultArtifactDir = "~/.local/share/mixdown/artifacts"
	defaultSocketPath  = "~/.local/share/mixdown/mixdownd.sock"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultChunkSeconds    = 180
	defaultWorkerPool      = 4
	defaultSeamFadeMillis  = 30
	defaultCutPolicy       = "sentence"
	defaultFixedCutSeconds = 10
	defaultSilenceFloor    = 512
	defaultTrailingKeepMs  = 400

	defaultDispatchPollSeconds       = 60
	defaultEarlyRetrySeconds         = 300
	defaultLateRetrySeconds          = 600
	defaultEscalateAfterSeconds      = 3600
	defaultAbandonAfterHours         = 72
	defaultDispatchTimeoutSeconds    = 10
	defaultCollaboratorTimeoutSecond = 120

	defaultCommitMaxAttempts       = 5
	defaultCommitBaseBackoffMillis = 250
	defaultCommitMaxBackoffMillis  = 5000
	defaultCommitJitter            = 0.3

	defaultQueuePollInterval      = 5
	defaultErrorRetryInterval     = 10
	defaultHeartbeatInterval      = 15
	defaultHeartbeatTimeout       = 120
	defaultStaleProcessingMinutes = 30
)

func defaultMarkerPhrases() []string {
	return []string{"strike that", "scratch that"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			LogDir:      defaultLogDir,
			ArtifactDir: defaultArtifactDir,
			SocketPath:  defaultSocketPath,
		},
		Transcription: Transcription{
			TimeoutSeconds: defaultCollaboratorTimeoutSecond,
		},
		Synthesis: Synthesis{
			DefaultVoice:   "narrator",
			TimeoutSeconds: defaultCollaboratorTimeoutSecond,
		},
		Assembly: Assembly{
			ChunkSeconds:    defaultChunkSeconds,
			WorkerPool:      defaultWorkerPool,
			SeamFadeMillis:  defaultSeamFadeMillis,
			MarkerPhrases:   defaultMarkerPhrases(),
			CutPolicy:       defaultCutPolicy,
			FixedCutSeconds: defaultFixedCutSeconds,
			SilenceFloor:    defaultSilenceFloor,
			TrailingKeepMs:  defaultTrailingKeepMs,
		},
		Dispatch: Dispatch{
			PollSeconds:           defaultDispatchPollSeconds,
			EarlyRetrySeconds:     defaultEarlyRetrySeconds,
			LateRetrySeconds:      defaultLateRetrySeconds,
			EscalateAfterSeconds:  defaultEscalateAfterSeconds,
			AbandonAfterHours:     defaultAbandonAfterHours,
			RequestTimeoutSeconds: defaultDispatchTimeoutSeconds,
		},
		Commit: Commit{
			MaxAttempts:       defaultCommitMaxAttempts,
			BaseBackoffMillis: defaultCommitBaseBackoffMillis,
			MaxBackoffMillis:  defaultCommitMaxBackoffMillis,
			Jitter:            defaultCommitJitter,
		},
		Workflow: Workflow{
			QueuePollInterval:      defaultQueuePollInterval,
			ErrorRetryInterval:     defaultErrorRetryInterval,
			HeartbeatInterval:      defaultHeartbeatInterval,
			HeartbeatTimeout:       defaultHeartbeatTimeout,
			StaleProcessingMinutes: defaultStaleProcessingMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
