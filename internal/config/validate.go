package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		problems = append(problems, "paths.artifact_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		problems = append(problems, "paths.socket_path must not be empty")
	}

	switch c.Assembly.CutPolicy {
	case "sentence", "fixed":
	default:
		problems = append(problems, fmt.Sprintf("assembly.cut_policy: unsupported value %q (expected sentence or fixed)", c.Assembly.CutPolicy))
	}
	if c.Assembly.ChunkSeconds < 30 {
		problems = append(problems, "assembly.chunk_seconds must be at least 30")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if c.Dispatch.LateRetrySeconds < 600 {
		problems = append(problems, "dispatch.late_retry_seconds must be at least 600")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
