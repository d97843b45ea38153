package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Episode describes an episode in a transport-friendly format.
type Episode struct {
	ID             int64           `json:"id"`
	UserID         string          `json:"userId"`
	Title          string          `json:"title"`
	TemplateID     string          `json:"templateId,omitempty"`
	Status         string          `json:"status"`
	Progress       EpisodeProgress `json:"progress"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	SourceAudioURI string          `json:"sourceAudioUri,omitempty"`
	TranscriptURI  string          `json:"transcriptUri,omitempty"`
	FinalAudioURI  string          `json:"finalAudioUri,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	QueuedJob      *QueuedJob      `json:"queuedJob,omitempty"`
}

// EpisodeProgress captures stage progress information for an episode.
type EpisodeProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// QueuedJob summarizes a deferred assembly request awaiting redispatch.
type QueuedJob struct {
	ID        int64  `json:"id"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
	QueuedAt  string `json:"queuedAt,omitempty"`
}

// StageHealth mirrors readiness reporting for the assembly stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastEpisode *Episode       `json:"lastEpisode,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}
