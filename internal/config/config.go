package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StagingDir  string `toml:"staging_dir"`
	LogDir      string `toml:"log_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	SocketPath  string `toml:"socket_path"`
}

// Transcription configures the word-timestamped transcription collaborator.
type Transcription struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Synthesis configures the speech-synthesis collaborator used for
// template segments backed by text instead of a static asset.
type Synthesis struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	DefaultVoice   string `toml:"default_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Assembly configures chunking, marker editing, and seam handling.
type Assembly struct {
	ChunkSeconds    int      `toml:"chunk_seconds"`
	WorkerPool      int      `toml:"worker_pool"`
	SeamFadeMillis  int      `toml:"seam_fade_millis"`
	MarkerPhrases   []string `toml:"marker_phrases"`
	CutPolicy       string   `toml:"cut_policy"`
	FixedCutSeconds int      `toml:"fixed_cut_seconds"`
	SilenceFloor    int      `toml:"silence_floor"`
	TrailingKeepMs  int      `toml:"trailing_keep_millis"`
}

// Dispatch configures worker hand-off and the queued-job redispatch schedule.
type Dispatch struct {
	PollSeconds           int `toml:"poll_seconds"`
	EarlyRetrySeconds     int `toml:"early_retry_seconds"`
	LateRetrySeconds      int `toml:"late_retry_seconds"`
	EscalateAfterSeconds  int `toml:"escalate_after_seconds"`
	AbandonAfterHours     int `toml:"abandon_after_hours"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Commit configures the retry policy wrapped around durable-state writes.
type Commit struct {
	MaxAttempts       int     `toml:"max_attempts"`
	BaseBackoffMillis int     `toml:"base_backoff_millis"`
	MaxBackoffMillis  int     `toml:"max_backoff_millis"`
	Jitter            float64 `toml:"jitter"`
}

// Workflow contains daemon timing and staleness thresholds.
type Workflow struct {
	QueuePollInterval      int `toml:"queue_poll_interval"`
	ErrorRetryInterval     int `toml:"error_retry_interval"`
	HeartbeatInterval      int `toml:"heartbeat_interval"`
	HeartbeatTimeout       int `toml:"heartbeat_timeout"`
	StaleProcessingMinutes int `toml:"stale_processing_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mixdown.
//
// Configuration sections by subsystem:
//   - Paths: staging, log, artifact store directories and IPC socket
//   - Transcription: word-timestamp transcription service connection
//   - Synthesis: speech-synthesis service connection
//   - Assembly: chunking, marker vocabulary, cut policy, seam fades
//   - Dispatch: worker hand-off and queued-job retry schedule
//   - Commit: durable-write retry policy
//   - Workflow: daemon polling intervals and staleness thresholds
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Assembly      Assembly      `toml:"assembly"`
	Dispatch      Dispatch      `toml:"dispatch"`
	Commit        Commit        `toml:"commit"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mixdown/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mixdown.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ArtifactDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
