package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an episode.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusPublished  Status = "published"
	StatusError      Status = "error"
)

// DaemonStopReason is the progress message set when in-flight episodes are
// returned to pending because the daemon is shutting down.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusProcessed,
	StatusPublished,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions encodes the episode lifecycle. Published is terminal
// and processed can only move forward to published.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusError},
	StatusProcessing: {StatusProcessed, StatusError, StatusPending},
	StatusProcessed:  {StatusPublished},
	StatusError:      {StatusPending},
	StatusPublished:  {},
}

// CanTransition reports whether moving an episode from one status to
// another is permitted.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Episode represents an episode persisted in SQLite.
type Episode struct {
	ID              int64
	UserID          string
	Title           string
	TemplateID      string
	Status          Status
	SourceAudioURI  string
	TranscriptURI   string
	EditedAudioURI  string
	FinalAudioURI   string
	ErrorMessage    string
	WarningsJSON    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CancelRequested bool
}

// IsProcessing returns true when the episode is actively being assembled.
func (e Episode) IsProcessing() bool {
	return e.Status == StatusProcessing
}

// Terminal reports whether the episode has reached a state the pipeline
// will not move it out of on its own.
func (e Episode) Terminal() bool {
	return e.Status == StatusPublished
}

// SetProgress updates all three progress fields together.
func (e *Episode) SetProgress(stage, message string, percent float64) {
	e.ProgressStage = stage
	e.ProgressMessage = message
	e.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (e *Episode) SetProgressComplete(stage, message string) {
	e.SetProgress(stage, message, 100)
}

// SetFailed marks the episode as errored with the given message.
func (e *Episode) SetFailed(message string) {
	e.Status = StatusError
	e.ErrorMessage = message
	e.ProgressPercent = 0
	e.ProgressMessage = message
	e.ProgressStage = "Failed"
	e.LastHeartbeat = nil
}

// JobState represents the lifecycle of a queued assembly job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobDone      JobState = "done"
	JobAbandoned JobState = "abandoned"
)

// AssemblyJob is a deferred assembly request persisted when the daemon
// could not accept the work at submission time.
type AssemblyJob struct {
	ID            int64
	EpisodeID     int64
	UserID        string
	TemplateID    string
	SourceAudio   string
	State         JobState
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastAttemptAt *time.Time
}

// Age returns how long the job has been waiting since it was first queued.
func (j AssemblyJob) Age(now time.Time) time.Duration {
	return now.Sub(j.CreatedAt)
}

// HealthSummary describes aggregated episode counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Processed  int
	Published  int
	Errored    int
	QueuedJobs int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalEpisodes    int
	Error            string
}
