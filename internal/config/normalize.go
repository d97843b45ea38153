package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssembly()
	c.normalizeDispatch()
	c.normalizeCommit()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("artifact_dir: %w", err)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssembly() {
	if c.Assembly.ChunkSeconds <= 0 {
		c.Assembly.ChunkSeconds = defaultChunkSeconds
	}
	if c.Assembly.WorkerPool <= 0 {
		c.Assembly.WorkerPool = defaultWorkerPool
	}
	if c.Assembly.SeamFadeMillis < 0 {
		c.Assembly.SeamFadeMillis = defaultSeamFadeMillis
	}
	if c.Assembly.FixedCutSeconds <= 0 {
		c.Assembly.FixedCutSeconds = defaultFixedCutSeconds
	}
	if c.Assembly.TrailingKeepMs < 0 {
		c.Assembly.TrailingKeepMs = defaultTrailingKeepMs
	}
	if len(c.Assembly.MarkerPhrases) == 0 {
		c.Assembly.MarkerPhrases = defaultMarkerPhrases()
	}
	phrases := make([]string, 0, len(c.Assembly.MarkerPhrases))
	for _, phrase := range c.Assembly.MarkerPhrases {
		trimmed := strings.ToLower(strings.TrimSpace(phrase))
		if trimmed != "" {
			phrases = append(phrases, trimmed)
		}
	}
	c.Assembly.MarkerPhrases = phrases
	c.Assembly.CutPolicy = strings.ToLower(strings.TrimSpace(c.Assembly.CutPolicy))
	if c.Assembly.CutPolicy == "" {
		c.Assembly.CutPolicy = defaultCutPolicy
	}
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.PollSeconds <= 0 {
		c.Dispatch.PollSeconds = defaultDispatchPollSeconds
	}
	if c.Dispatch.EarlyRetrySeconds <= 0 {
		c.Dispatch.EarlyRetrySeconds = defaultEarlyRetrySeconds
	}
	if c.Dispatch.LateRetrySeconds <= 0 {
		c.Dispatch.LateRetrySeconds = defaultLateRetrySeconds
	}
	if c.Dispatch.EscalateAfterSeconds <= 0 {
		c.Dispatch.EscalateAfterSeconds = defaultEscalateAfterSeconds
	}
	if c.Dispatch.AbandonAfterHours <= 0 {
		c.Dispatch.AbandonAfterHours = defaultAbandonAfterHours
	}
	if c.Dispatch.RequestTimeoutSeconds <= 0 {
		c.Dispatch.RequestTimeoutSeconds = defaultDispatchTimeoutSeconds
	}
}

func (c *Config) normalizeCommit() {
	if c.Commit.MaxAttempts <= 0 {
		c.Commit.MaxAttempts = defaultCommitMaxAttempts
	}
	if c.Commit.BaseBackoffMillis <= 0 {
		c.Commit.BaseBackoffMillis = defaultCommitBaseBackoffMillis
	}
	if c.Commit.MaxBackoffMillis < c.Commit.BaseBackoffMillis {
		c.Commit.MaxBackoffMillis = defaultCommitMaxBackoffMillis
	}
	if c.Commit.Jitter < 0 || c.Commit.Jitter > 1 {
		c.Commit.Jitter = defaultCommitJitter
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.StaleProcessingMinutes <= 0 {
		c.Workflow.StaleProcessingMinutes = defaultStaleProcessingMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
