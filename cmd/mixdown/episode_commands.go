package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mixdown/internal/api"
	"mixdown/internal/ipc"
	"mixdown/internal/queue"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:   "episode",
		Short: "Inspect and manage episodes",
	}

	episodeCmd.AddCommand(newEpisodeListCommand(ctx))
	episodeCmd.AddCommand(newEpisodeShowCommand(ctx))
	episodeCmd.AddCommand(newEpisodeRetryCommand(ctx))
	episodeCmd.AddCommand(newEpisodeCancelCommand(ctx))
	episodeCmd.AddCommand(newEpisodeRemoveCommand(ctx))

	return episodeCmd
}

func newEpisodeListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var episodes []api.Episode
				if client != nil {
					resp, err := client.EpisodeList(listStatuses)
					if err != nil {
						return err
					}
					episodes = resp.Episodes
				} else {
					var statuses []queue.Status
					for _, status := range listStatuses {
						statuses = append(statuses, queue.Status(status))
					}
					rows, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					episodes = api.FromEpisodes(rows)
				}

				stdout := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(stdout, "No episodes found")
					return nil
				}
				table := renderTable(episodeColumns(), buildEpisodeRows(episodes))
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by episode status (repeatable)")
	return cmd
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show episode details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEpisodeID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var episode api.Episode
				if client != nil {
					resp, err := client.EpisodeDescribe(id)
					if err != nil {
						return err
					}
					episode = resp.Episode
				} else {
					row, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if row == nil {
						return fmt.Errorf("episode %d not found", id)
					}
					episode = api.FromEpisode(row)
					if job, jobErr := store.QueuedJobForEpisode(cmd.Context(), id); jobErr == nil {
						episode.QueuedJob = api.FromQueuedJob(job)
					}
				}
				printEpisodeDetails(cmd, episode)
				return nil
			})
		},
	}
}

func newEpisodeRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id ...]",
		Short: "Requeue errored episodes (all errored episodes when no ids given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseEpisodeIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				if client != nil {
					resp, err := client.EpisodeRetry(ids)
					if err != nil {
						return err
					}
					updated = resp.Updated
				} else {
					updated, err = store.RetryErrored(cmd.Context(), ids...)
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d episodes\n", updated)
				return nil
			})
		},
	}
}

func newEpisodeCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Request cancellation of a pending or in-flight episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEpisodeID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var cancelled bool
				if client != nil {
					resp, err := client.EpisodeCancel(id)
					if err != nil {
						return err
					}
					cancelled = resp.Cancelled
				} else {
					cancelled, err = store.RequestCancel(cmd.Context(), id)
					if err != nil {
						return err
					}
				}
				stdout := cmd.OutOrStdout()
				if cancelled {
					fmt.Fprintf(stdout, "Cancellation requested for episode %d\n", id)
				} else {
					fmt.Fprintf(stdout, "Episode %d is not cancellable\n", id)
				}
				return nil
			})
		},
	}
}

func newEpisodeRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> [id ...]",
		Short: "Remove episodes from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseEpisodeIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.EpisodeRemove(ids)
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					for _, id := range ids {
						ok, err := store.Remove(cmd.Context(), id)
						if err != nil {
							return err
						}
						if ok {
							removed++
						}
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d episodes\n", removed)
				return nil
			})
		},
	}
}

func printEpisodeDetails(cmd *cobra.Command, episode api.Episode) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader(fmt.Sprintf("Episode %d", episode.ID), colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Title", statusInfo, episode.Title, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Owner", statusInfo, episode.UserID, colorize))
	if episode.TemplateID != "" {
		fmt.Fprintln(stdout, renderStatusLine("Template", statusInfo, episode.TemplateID, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Status", episodeStatusKind(episode.Status), statusDisplayName(episode.Status), colorize))
	if episode.Progress.Stage != "" {
		detail := fmt.Sprintf("%s (%.0f%%)", episode.Progress.Stage, episode.Progress.Percent)
		if episode.Progress.Message != "" {
			detail = fmt.Sprintf("%s: %s", detail, episode.Progress.Message)
		}
		fmt.Fprintln(stdout, renderStatusLine("Progress", statusInfo, detail, colorize))
	}
	if episode.ErrorMessage != "" {
		fmt.Fprintln(stdout, renderStatusLine("Error", statusError, episode.ErrorMessage, colorize))
	}
	for _, warning := range episode.Warnings {
		fmt.Fprintln(stdout, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	if episode.SourceAudioURI != "" {
		fmt.Fprintln(stdout, renderStatusLine("Source", statusInfo, episode.SourceAudioURI, colorize))
	}
	if episode.TranscriptURI != "" {
		fmt.Fprintln(stdout, renderStatusLine("Transcript", statusInfo, episode.TranscriptURI, colorize))
	}
	if episode.FinalAudioURI != "" {
		fmt.Fprintln(stdout, renderStatusLine("Final audio", statusInfo, episode.FinalAudioURI, colorize))
	}
	if episode.QueuedJob != nil {
		detail := fmt.Sprintf("Job %d, %d attempts", episode.QueuedJob.ID, episode.QueuedJob.Attempts)
		if episode.QueuedJob.LastError != "" {
			detail = fmt.Sprintf("%s, last error: %s", detail, episode.QueuedJob.LastError)
		}
		fmt.Fprintln(stdout, renderStatusLine("Queued job", statusWarn, detail, colorize))
	}
	if episode.CreatedAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, episode.CreatedAt, colorize))
	}
	if episode.UpdatedAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Updated", statusInfo, episode.UpdatedAt, colorize))
	}
}

func buildEpisodeRows(episodes []api.Episode) [][]string {
	rows := make([][]string, 0, len(episodes))
	for _, episode := range episodes {
		rows = append(rows, []string{
			strconv.FormatInt(episode.ID, 10),
			episode.Title,
			statusDisplayName(episode.Status),
			episode.Progress.Stage,
			fmt.Sprintf("%.0f%%", episode.Progress.Percent),
			episode.CreatedAt,
		})
	}
	return rows
}

func episodeStatusKind(status string) statusKind {
	switch queue.Status(status) {
	case queue.StatusError:
		return statusError
	case queue.StatusProcessing:
		return statusInfo
	case queue.StatusProcessed, queue.StatusPublished:
		return statusOK
	default:
		return statusInfo
	}
}

func parseEpisodeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid episode id %q", arg)
	}
	return id, nil
}

func parseEpisodeIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseEpisodeID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no episode ids supplied")
	}
	return ids, nil
}
