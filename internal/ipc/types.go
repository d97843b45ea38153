package ipc

import "mixdown/internal/api"

// Episode mirrors the API episode DTO for IPC callers.
type Episode = api.Episode

// StageHealth describes readiness of the assembly stage.
type StageHealth = api.StageHealth

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error"`
	LastEpisode *Episode       `json:"last_episode"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	StageHealth []StageHealth  `json:"stage_health"`
	PID         int            `json:"pid"`
}

// AssembleRequest hands an episode to the worker runtime. The episode row
// must already exist in the shared queue database; the remaining fields
// make the request self-contained and are cross-checked against the row
// when present.
type AssembleRequest struct {
	EpisodeID      int64  `json:"episode_id"`
	TemplateID     string `json:"template_id,omitempty"`
	SourceAudioRef string `json:"source_audio_ref,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// AssembleResponse reports acceptance of an assembly request.
type AssembleResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// EpisodeListRequest filters episode listing by status.
type EpisodeListRequest struct {
	Statuses []string `json:"statuses"`
}

// EpisodeListResponse contains episode entries.
type EpisodeListResponse struct {
	Episodes []Episode `json:"episodes"`
}

// EpisodeDescribeRequest fetches a single episode by id.
type EpisodeDescribeRequest struct {
	ID int64 `json:"id"`
}

// EpisodeDescribeResponse contains a single episode.
type EpisodeDescribeResponse struct {
	Episode Episode `json:"episode"`
}

// EpisodeRetryRequest retries errored episodes. Empty list means all.
type EpisodeRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// EpisodeRetryResponse reports number of retried episodes.
type EpisodeRetryResponse struct {
	Updated int64 `json:"updated"`
}

// EpisodeCancelRequest flags an episode for cooperative cancellation.
type EpisodeCancelRequest struct {
	ID int64 `json:"id"`
}

// EpisodeCancelResponse reports whether the cancel flag was set.
type EpisodeCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// EpisodeRemoveRequest removes specific episodes by ID.
type EpisodeRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// EpisodeRemoveResponse reports number of removed entries.
type EpisodeRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight episodes back to pending.
type QueueResetRequest struct{}

// QueueResetResponse reports number of episodes reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Published  int `json:"published"`
	Errored    int `json:"errored"`
	QueuedJobs int `json:"queued_jobs"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalEpisodes    int    `json:"total_episodes"`
	Error            string `json:"error"`
}
