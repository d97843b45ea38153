package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, episode_id, user_id, template_id, source_audio, state, attempts, last_error, created_at, updated_at, last_attempt_at"

// EnqueueJob records an assembly request that the daemon could not accept
// at submission time. The episode stays pending from the caller's point of
// view while the poller redrives the job.
func (s *Store) EnqueueJob(ctx context.Context, episodeID int64, userID, templateID, sourceAudio string) (*AssemblyJob, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO assembly_jobs (
            episode_id, user_id, template_id, source_audio, state,
            attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		episodeID,
		userID,
		nullableString(templateID),
		nullableString(sourceAudio),
		JobQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assembly job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches an assembly job by identifier.
func (s *Store) GetJob(ctx context.Context, id int64) (*AssemblyJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM assembly_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assembly job: %w", err)
	}
	return job, nil
}

// QueuedJobs returns every job still waiting for a successful dispatch,
// oldest first.
func (s *Store) QueuedJobs(ctx context.Context) ([]*AssemblyJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM assembly_jobs WHERE state = ? ORDER BY created_at`, JobQueued)
	if err != nil {
		return nil, fmt.Errorf("query queued jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*AssemblyJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkJobAttempt records a failed dispatch attempt.
func (s *Store) MarkJobAttempt(ctx context.Context, id int64, lastError string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE assembly_jobs
         SET attempts = attempts + 1, last_error = ?, last_attempt_at = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(lastError),
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark job attempt: %w", err)
	}
	return nil
}

// ResolveJob moves a job out of the queued state once it has been handed
// to the worker or abandoned.
func (s *Store) ResolveJob(ctx context.Context, id int64, state JobState, lastError string) error {
	if state != JobDone && state != JobAbandoned {
		return fmt.Errorf("invalid terminal job state %q", state)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE assembly_jobs SET state = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		state,
		nullableString(lastError),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("resolve job: %w", err)
	}
	return nil
}

// QueuedJobForEpisode returns the queued job for an episode, if any.
func (s *Store) QueuedJobForEpisode(ctx context.Context, episodeID int64) (*AssemblyJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM assembly_jobs WHERE episode_id = ? AND state = ? ORDER BY id LIMIT 1`,
		episodeID,
		JobQueued,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job for episode: %w", err)
	}
	return job, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*AssemblyJob, error) {
	var (
		id            int64
		episodeID     int64
		userID        string
		templateID    sql.NullString
		sourceAudio   sql.NullString
		stateStr      string
		attempts      int
		lastError     sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		lastAttemptAt sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&episodeID,
		&userID,
		&templateID,
		&sourceAudio,
		&stateStr,
		&attempts,
		&lastError,
		&createdRaw,
		&updatedRaw,
		&lastAttemptAt,
	); err != nil {
		return nil, err
	}

	job := &AssemblyJob{
		ID:          id,
		EpisodeID:   episodeID,
		UserID:      userID,
		TemplateID:  templateID.String,
		SourceAudio: sourceAudio.String,
		State:       JobState(stateStr),
		Attempts:    attempts,
		LastError:   lastError.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastAttemptAt.Valid {
		if attempt, err := parseTimeString(lastAttemptAt.String); err == nil {
			job.LastAttemptAt = &attempt
		}
	}
	return job, nil
}
