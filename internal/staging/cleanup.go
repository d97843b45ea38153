// Package staging reclaims scratch space left behind by assembly runs.
//
// Each assembly run works in a per-episode directory under the staging
// root. The worker leaves the directory in place when the daemon dies
// mid-run so a resumed run can reuse whatever survived; once the episode
// reaches a resting state, or the directory outlives the retention window,
// the workspace is garbage.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mixdown/internal/logging"
)

// WorkspacePrefix names per-episode scratch directories under the staging
// root. The suffix is the episode id.
const WorkspacePrefix = "episode_"

// Result reports the outcome of a cleanup pass.
type Result struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with the error that kept it in place.
type SweepError struct {
	Path string
	Err  error
}

// WorkspaceDir returns the scratch directory for an episode.
func WorkspaceDir(stagingDir string, episodeID int64) string {
	return filepath.Join(stagingDir, WorkspacePrefix+strconv.FormatInt(episodeID, 10))
}

// CleanFinished removes episode workspaces whose episode is no longer
// active. Directories that do not follow the workspace naming are left for
// CleanStale.
func CleanFinished(ctx context.Context, stagingDir string, active map[int64]struct{}, logger *slog.Logger) Result {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := Result{}

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		episodeID, ok := parseWorkspaceName(entry.Name())
		if !ok {
			continue
		}
		if _, inFlight := active[episodeID]; inFlight {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Err: err})
			logger.Warn("failed to remove finished workspace",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"))
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed finished workspace",
			logging.String("path", dirPath),
			logging.Int64(logging.FieldEpisodeID, episodeID),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
	return result
}

// CleanStale removes any staging directory whose contents have not been
// touched within maxAge. This catches workspaces orphaned by renamed
// episodes and scratch directories that never matched the naming scheme.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) Result {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := Result{}

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: filepath.Join(stagingDir, entry.Name()), Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Err: err})
			logger.Warn("failed to remove stale workspace",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"))
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed stale workspace",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
	return result
}

func readStagingDir(stagingDir string, result *Result) ([]os.DirEntry, bool) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, false
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: stagingDir, Err: err})
		}
		return nil, false
	}
	return entries, true
}

func parseWorkspaceName(name string) (int64, bool) {
	suffix, ok := strings.CutPrefix(name, WorkspacePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
