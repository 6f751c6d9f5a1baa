package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const timeEntryColumns = `id, user_id, task_id, task_title, started_at, ended_at, duration_seconds, notes, breaks, created_at`

func (s *SQLStore) CreateTimeEntry(ctx context.Context, e *TimeEntry) error {
	query := `
		INSERT INTO time_entries (` + timeEntryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.TaskID,
		e.TaskTitle,
		formatTime(e.StartedAt),
		formatNullTime(e.EndedAt),
		e.DurationSeconds,
		e.Notes,
		breaksText(e.Breaks),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert time entry: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTimeEntry(ctx context.Context, userID, id string) (*TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE id = ? AND user_id = ?`
	e, err := scanTimeEntry(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *SQLStore) ListTimeEntries(ctx context.Context, userID string) ([]TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE user_id = ? ORDER BY started_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	entries := []TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListTimeEntriesBetween returns the user's entries started in [start, end),
// newest first, with the project of each entry's task when it has one.
func (s *SQLStore) ListTimeEntriesBetween(ctx context.Context, userID string, start, end time.Time) ([]TimeEntryWithProject, error) {
	query := `
		SELECT e.id, e.user_id, e.task_id, e.task_title, e.started_at, e.ended_at,
			e.duration_seconds, e.notes, e.breaks, e.created_at,
			p.id, p.name, p.color
		FROM time_entries e
		LEFT JOIN tasks t ON t.id = e.task_id AND t.user_id = e.user_id
		LEFT JOIN projects p ON p.id = t.project_id AND p.user_id = e.user_id
		WHERE e.user_id = ? AND e.started_at >= ? AND e.started_at < ?
		ORDER BY e.started_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query time entries between: %w", err)
	}
	defer rows.Close()

	entries := []TimeEntryWithProject{}
	for rows.Next() {
		var e TimeEntryWithProject
		var endedAt, projectID, projectName, projectColor sql.NullString
		var startedAt, createdAt, breaks string
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.TaskID,
			&e.TaskTitle,
			&startedAt,
			&endedAt,
			&e.DurationSeconds,
			&e.Notes,
			&breaks,
			&createdAt,
			&projectID,
			&projectName,
			&projectColor,
		); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		e.StartedAt = parseTime(startedAt)
		e.EndedAt = parseNullTime(endedAt)
		e.Breaks = json.RawMessage(breaks)
		e.CreatedAt = parseTime(createdAt)
		if projectID.Valid {
			e.Project = &ProjectRef{
				ID:    projectID.String,
				Name:  projectName.String,
				Color: projectColor.String,
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) UpdateTimeEntry(ctx context.Context, e *TimeEntry) error {
	query := `
		UPDATE time_entries
		SET task_id = ?, task_title = ?, started_at = ?, ended_at = ?, duration_seconds = ?, notes = ?, breaks = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update time entry", query,
		e.TaskID,
		e.TaskTitle,
		formatTime(e.StartedAt),
		formatNullTime(e.EndedAt),
		e.DurationSeconds,
		e.Notes,
		breaksText(e.Breaks),
		e.ID,
		e.UserID,
	)
}

func (s *SQLStore) DeleteTimeEntry(ctx context.Context, userID, id string) error {
	return s.execOwned(ctx, "delete time entry", `DELETE FROM time_entries WHERE id = ? AND user_id = ?`, id, userID)
}

func scanTimeEntry(row scanner) (*TimeEntry, error) {
	var e TimeEntry
	var endedAt sql.NullString
	var startedAt, createdAt, breaks string
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.TaskID,
		&e.TaskTitle,
		&startedAt,
		&endedAt,
		&e.DurationSeconds,
		&e.Notes,
		&breaks,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan time entry: %w", err)
	}
	e.StartedAt = parseTime(startedAt)
	e.EndedAt = parseNullTime(endedAt)
	e.Breaks = json.RawMessage(breaks)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func breaksText(b json.RawMessage) string {
	if len(b) == 0 || string(b) == "null" {
		return "[]"
	}
	return string(b)
}
