// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"mixdown/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfg.Paths.SocketPath = filepath.Join(base, "mixdown.sock")
	cfg.Transcription.BaseURL = "http://127.0.0.1:0"
	cfg.Synthesis.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithChunkSeconds overrides the chunk target length on the test config.
func WithChunkSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Assembly.ChunkSeconds = seconds
	}
}

// WithWorkerPool overrides the chunk worker pool size on the test config.
func WithWorkerPool(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Assembly.WorkerPool = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
