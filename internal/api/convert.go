package api

import (
	"encoding/json"

	"mixdown/internal/queue"
)

// FromEpisode converts a queue record to its API representation.
func FromEpisode(episode *queue.Episode) Episode {
	if episode == nil {
		return Episode{}
	}

	dto := Episode{
		ID:         episode.ID,
		UserID:     episode.UserID,
		Title:      episode.Title,
		TemplateID: episode.TemplateID,
		Status:     string(episode.Status),
		Progress: EpisodeProgress{
			Stage:   episode.ProgressStage,
			Percent: episode.ProgressPercent,
			Message: episode.ProgressMessage,
		},
		ErrorMessage:   episode.ErrorMessage,
		SourceAudioURI: episode.SourceAudioURI,
		TranscriptURI:  episode.TranscriptURI,
		FinalAudioURI:  episode.FinalAudioURI,
	}
	if raw := episode.WarningsJSON; raw != "" {
		var warnings []string
		if err := json.Unmarshal([]byte(raw), &warnings); err == nil {
			dto.Warnings = warnings
		}
	}
	if !episode.CreatedAt.IsZero() {
		dto.CreatedAt = episode.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !episode.UpdatedAt.IsZero() {
		dto.UpdatedAt = episode.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromEpisodes converts a slice of queue records into API DTOs.
func FromEpisodes(episodes []*queue.Episode) []Episode {
	if len(episodes) == 0 {
		return nil
	}
	out := make([]Episode, 0, len(episodes))
	for _, episode := range episodes {
		out = append(out, FromEpisode(episode))
	}
	return out
}

// FromQueuedJob converts an assembly job to its API representation.
func FromQueuedJob(job *queue.AssemblyJob) *QueuedJob {
	if job == nil {
		return nil
	}
	dto := &QueuedJob{
		ID:        job.ID,
		Attempts:  job.Attempts,
		LastError: job.LastError,
	}
	if !job.CreatedAt.IsZero() {
		dto.QueuedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}
