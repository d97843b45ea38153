package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mixdown/internal/ipc"
	"mixdown/internal/queue"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the assembly workflow in the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Started {
					fmt.Fprintln(stdout, "Workflow started")
					return nil
				}
				if resp.Message != "" {
					fmt.Fprintln(stdout, resp.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Workflow already running")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the assembly workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Stopped {
					fmt.Fprintln(stdout, "Workflow stopped")
				} else {
					fmt.Fprintln(stdout, "Workflow was not running")
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}

				var stats map[string]int
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
					workflowKind := statusWarn
					workflowMsg := "Stopped"
					if status.Running {
						workflowKind = statusOK
						workflowMsg = "Running"
					}
					fmt.Fprintln(stdout, renderStatusLine("Workflow", workflowKind, workflowMsg, colorize))
					if status.LastError != "" {
						fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
					}
					if status.LastEpisode != nil {
						detail := fmt.Sprintf("#%d %s (%s)", status.LastEpisode.ID, status.LastEpisode.Title, status.LastEpisode.Status)
						fmt.Fprintln(stdout, renderStatusLine("Last episode", statusInfo, detail, colorize))
					}
					fmt.Fprintln(stdout, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
					for _, health := range status.StageHealth {
						kind := statusOK
						if !health.Ready {
							kind = statusWarn
						}
						detail := health.Detail
						if detail == "" {
							detail = "Ready"
						}
						fmt.Fprintln(stdout, renderStatusLine("Stage "+health.Name, kind, detail, colorize))
					}
					stats = status.QueueStats
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					stats = make(map[string]int, len(raw))
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Queue Status", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				table := renderTable(countColumns("Status"), rows)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{statusDisplayName(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}
