package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mixdown/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "mixdown.log")

			result, err := logs.Tail(cmd.Context(), logPath, logs.Options{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if !follow {
				if len(result.Lines) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No log output yet at %s\n", logPath)
				}
				return nil
			}

			offset := result.Offset
			for {
				next, err := logs.Tail(cmd.Context(), logPath, logs.Options{Offset: offset, Follow: true, Wait: 2 * time.Second})
				if err != nil {
					if errors.Is(err, cmd.Context().Err()) {
						return nil
					}
					return err
				}
				for _, line := range next.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				offset = next.Offset
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to print")
	return cmd
}
