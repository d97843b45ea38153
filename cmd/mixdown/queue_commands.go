package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/ipc"
	"mixdown/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue maintenance and diagnostics",
	}

	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueDatabaseCommand(ctx))

	return queueCmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset in-flight episodes back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					resp, respErr := client.QueueReset()
					if respErr != nil {
						return respErr
					}
					updated = resp.Updated
				} else {
					updated, err = store.ResetStuckProcessing(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d episodes to pending\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show aggregate queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var health queue.HealthSummary
				if client != nil {
					resp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = queue.HealthSummary{
						Total:      resp.Total,
						Pending:    resp.Pending,
						Processing: resp.Processing,
						Processed:  resp.Processed,
						Published:  resp.Published,
						Errored:    resp.Errored,
						QueuedJobs: resp.QueuedJobs,
					}
				} else {
					var err error
					health, err = store.Health(cmd.Context())
					if err != nil {
						return err
					}
				}

				rows := [][]string{
					{"Total", fmt.Sprintf("%d", health.Total)},
					{"Pending", fmt.Sprintf("%d", health.Pending)},
					{"Processing", fmt.Sprintf("%d", health.Processing)},
					{"Processed", fmt.Sprintf("%d", health.Processed)},
					{"Published", fmt.Sprintf("%d", health.Published)},
					{"Errored", fmt.Sprintf("%d", health.Errored)},
					{"Queued jobs", fmt.Sprintf("%d", health.QueuedJobs)},
				}
				table := renderTable(countColumns("Metric"), rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueDatabaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "database",
		Short: "Run database health diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var health queue.DatabaseHealth
				if client != nil {
					resp, err := client.DatabaseHealth()
					if err != nil {
						return err
					}
					health = queue.DatabaseHealth{
						DBPath:           resp.DBPath,
						DatabaseExists:   resp.DatabaseExists,
						DatabaseReadable: resp.DatabaseReadable,
						TableExists:      resp.TableExists,
						IntegrityCheck:   resp.IntegrityCheck,
						TotalEpisodes:    resp.TotalEpisodes,
						Error:            resp.Error,
					}
				} else {
					var err error
					health, err = store.CheckHealth(cmd.Context())
					if err != nil {
						return err
					}
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				for _, line := range renderSectionHeader("Database Health", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Path", statusInfo, health.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Exists", boolKind(health.DatabaseExists), yesNo(health.DatabaseExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Schema", boolKind(health.TableExists), yesNo(health.TableExists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity", boolKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Episodes", statusInfo, fmt.Sprintf("%d", health.TotalEpisodes), colorize))
				if health.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				return nil
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
