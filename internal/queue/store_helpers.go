package queue

import (
	"database/sql"
	"errors"
	"time"
)

const episodeColumns = "id, user_id, title, template_id, status, source_audio_uri, transcript_uri, edited_audio_uri, final_audio_uri, error_message, warnings_json, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, cancel_requested"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id               int64
		userID           string
		title            sql.NullString
		templateID       sql.NullString
		statusStr        string
		sourceAudioURI   sql.NullString
		transcriptURI    sql.NullString
		editedAudioURI   sql.NullString
		finalAudioURI    sql.NullString
		errorMessage     sql.NullString
		warningsJSON     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		cancelRequested  sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&title,
		&templateID,
		&statusStr,
		&sourceAudioURI,
		&transcriptURI,
		&editedAudioURI,
		&finalAudioURI,
		&errorMessage,
		&warningsJSON,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&cancelRequested,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:              id,
		UserID:          userID,
		Title:           title.String,
		TemplateID:      templateID.String,
		Status:          Status(statusStr),
		SourceAudioURI:  sourceAudioURI.String,
		TranscriptURI:   transcriptURI.String,
		EditedAudioURI:  editedAudioURI.String,
		FinalAudioURI:   finalAudioURI.String,
		ErrorMessage:    errorMessage.String,
		WarningsJSON:    warningsJSON.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if cancelRequested.Valid {
		episode.CancelRequested = cancelRequested.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			episode.LastHeartbeat = &heartbeat
		}
	}
	return episode, nil
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
