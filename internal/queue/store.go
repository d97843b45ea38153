package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mixdown/internal/config"
)

// Store manages episode persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the queue database.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database connection is usable. The commit supervisor
// probes with this between retry attempts.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("queue database connection unavailable")
	}
	return s.db.PingContext(ctx)
}

// NewEpisode inserts a pending episode awaiting assembly.
func (s *Store) NewEpisode(ctx context.Context, userID, title, templateID, sourceAudioURI string) (*Episode, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO episodes (
            user_id, title, template_id, status, source_audio_uri,
            created_at, updated_at, progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		nullableString(title),
		nullableString(templateID),
		StatusPending,
		nullableString(sourceAudioURI),
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an episode by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// Update persists changes to an existing episode. Status changes are
// checked against the lifecycle so an episode never moves backwards out
// of published.
func (s *Store) Update(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("episode is nil")
	}

	current, err := s.GetByID(ctx, episode.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("episode %d not found", episode.ID)
	}
	if !CanTransition(current.Status, episode.Status) {
		return fmt.Errorf("invalid status transition %s -> %s for episode %d", current.Status, episode.Status, episode.ID)
	}

	episode.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE episodes
         SET user_id = ?, title = ?, template_id = ?, status = ?,
             source_audio_uri = ?, transcript_uri = ?, edited_audio_uri = ?, final_audio_uri = ?,
             error_message = ?, warnings_json = ?, updated_at = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, cancel_requested = ?
         WHERE id = ?`,
		episode.UserID,
		nullableString(episode.Title),
		nullableString(episode.TemplateID),
		episode.Status,
		nullableString(episode.SourceAudioURI),
		nullableString(episode.TranscriptURI),
		nullableString(episode.EditedAudioURI),
		nullableString(episode.FinalAudioURI),
		nullableString(episode.ErrorMessage),
		nullableString(episode.WarningsJSON),
		episode.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(episode.ProgressStage),
		episode.ProgressPercent,
		nullableString(episode.ProgressMessage),
		nullableTime(episode.LastHeartbeat),
		boolToInt(episode.CancelRequested),
		episode.ID,
	)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// Transition atomically claims an episode by moving it between statuses.
// It returns false when the episode was not in the expected status, which
// makes it safe for competing pollers.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE episodes SET status = ?, updated_at = ?, last_heartbeat = ? WHERE id = ? AND status = ?`,
		to, now, now, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// EpisodesByStatus returns episodes matching a status ordered by creation time.
func (s *Store) EpisodesByStatus(ctx context.Context, status Status) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// List returns episodes filtered by status set (or all episodes when no
// status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// NextForStatuses returns the oldest episode matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Episode, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return episode, nil
}

// RequestCancel flags an in-flight episode for cooperative cancellation.
func (s *Store) RequestCancel(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE episodes SET cancel_requested = 1, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Remove deletes an episode by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
