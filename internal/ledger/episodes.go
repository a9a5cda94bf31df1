package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const episodeColumns = "id, run_id, podcast, episode_guid, title, identifier, audio_url, status, error_message, created_at, updated_at"

// Register inserts or refreshes the row for an episode discovered in a feed.
// A re-sighted episode keeps its status history but picks up current feed
// metadata and the new run id.
func (s *Store) Register(ctx context.Context, runID string, episode Episode) (*Episode, error) {
	podcast := strings.TrimSpace(episode.Podcast)
	guid := strings.TrimSpace(episode.EpisodeGUID)
	if podcast == "" || guid == "" {
		return nil, errors.New("episode requires podcast and guid")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (
            podcast, episode_guid, title, identifier, audio_url,
            status, run_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (podcast, episode_guid) DO UPDATE SET
            title = excluded.title,
            identifier = excluded.identifier,
            audio_url = excluded.audio_url,
            run_id = excluded.run_id,
            updated_at = excluded.updated_at`,
		podcast,
		guid,
		nullableString(episode.Title),
		nullableString(episode.Identifier),
		nullableString(episode.AudioURL),
		StatusPending,
		nullableString(runID),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("register episode: %w", err)
	}

	return s.GetByKey(ctx, podcast, guid)
}

// GetByID fetches an episode row by identifier.
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

// GetByKey fetches an episode row by its podcast and feed guid.
func (s *Store) GetByKey(ctx context.Context, podcast, guid string) (*Episode, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE podcast = ? AND episode_guid = ?`,
		podcast,
		guid,
	)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode by key: %w", err)
	}
	return episode, nil
}

// SetStatus records a stage transition. Any prior failure message is cleared.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// MarkFailed moves a row to the terminal failed status and records why.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// List returns episode rows filtered by status set (or all rows when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY created_at, id`

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

// Recent returns the most recently touched rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Episode, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY updated_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// Stats returns a count of episode rows grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summarize aggregates episode counts for status output.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{}
	for status, count := range stats {
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusFailed:
			summary.Failed += count
		case StatusCompleted:
			summary.Completed += count
		default:
			if _, ok := processingStatuses[status]; ok {
				summary.Processing += count
			}
		}
	}
	return summary, nil
}

// ResetStale fails rows a previous run left in an in-flight status, so the
// status table never shows phantom progress after a crash. Called at batch
// start before any episode work.
func (s *Store) ResetStale(ctx context.Context, message string) (int64, error) {
	placeholders := makePlaceholders(len(inFlightStatuses))
	args := make([]any, 0, len(inFlightStatuses)+3)
	args = append(args,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	for _, status := range inFlightStatuses {
		args = append(args, status)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET status = ?, error_message = ?, updated_at = ?
         WHERE status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale episodes: %w", err)
	}
	return res.RowsAffected()
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

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id           int64
		runID        sql.NullString
		podcast      string
		guid         string
		title        sql.NullString
		identifier   sql.NullString
		audioURL     sql.NullString
		statusStr    string
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&podcast,
		&guid,
		&title,
		&identifier,
		&audioURL,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:           id,
		RunID:        runID.String,
		Podcast:      podcast,
		EpisodeGUID:  guid,
		Title:        title.String,
		Identifier:   identifier.String,
		AudioURL:     audioURL.String,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}
