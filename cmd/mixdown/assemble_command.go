package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/artifacts"
	"mixdown/internal/dispatch"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var title string
	var userID string
	var templateID string

	cmd := &cobra.Command{
		Use:   "assemble <audio-file-or-artifact-uri>",
		Short: "Submit a recording for episode assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source := strings.TrimSpace(args[0])
			if source == "" {
				return errors.New("source audio is required")
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue database: %w", err)
			}
			defer store.Close()

			sourceURI, err := resolveSourceURI(cmd, cfg.Paths.ArtifactDir, userID, source)
			if err != nil {
				return err
			}

			if title == "" {
				title = deriveTitle(source)
			}

			episode, err := store.NewEpisode(cmd.Context(), userID, title, templateID, sourceURI)
			if err != nil {
				return fmt.Errorf("create episode: %w", err)
			}

			dispatcher := dispatch.NewDispatcher(store, ctx.socketPath(), logging.NewNop())
			result, err := dispatcher.Dispatch(cmd.Context(), episode.ID)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Episode %d created: %s\n", episode.ID, episode.Title)
			if result.Queued {
				fmt.Fprintln(stdout, "No worker available; assembly queued for redispatch")
			} else {
				fmt.Fprintln(stdout, "Assembly started")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Episode title (defaults to the file name)")
	cmd.Flags().StringVarP(&userID, "user", "u", "local", "Owner identifier for artifact storage")
	cmd.Flags().StringVar(&templateID, "template", "default", "Show template identifier")
	return cmd
}

// resolveSourceURI ingests a local file into the artifact store, or passes
// an artifact URI through untouched.
func resolveSourceURI(cmd *cobra.Command, artifactRoot, userID, source string) (string, error) {
	if strings.HasPrefix(source, artifacts.URIScheme) {
		return source, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("inspect source audio %q: %w", source, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source audio %q is a directory", source)
	}

	store, err := artifacts.NewFSStore(artifactRoot)
	if err != nil {
		return "", fmt.Errorf("open artifact store: %w", err)
	}

	key := fmt.Sprintf("%s/sources/%s", userID, filepath.Base(source))
	asset, err := artifacts.StoreFile(cmd.Context(), store, key, source)
	if err != nil {
		return "", fmt.Errorf("store source audio: %w", err)
	}
	return asset.URI, nil
}

func deriveTitle(source string) string {
	base := filepath.Base(source)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
