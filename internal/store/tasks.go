package store

import (
	"context"
	"database/sql"
	"fmt"
)

const taskColumns = `id, user_id, title, category, project_id, notes, planned_start, planned_duration, archived, created_at`

func (s *SQLStore) CreateTask(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Category,
		t.ProjectID,
		t.Notes,
		formatNullTime(t.PlannedStart),
		t.PlannedDuration,
		boolToInt(t.Archived),
		formatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTask(ctx context.Context, userID, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) UpdateTask(ctx context.Context, t *Task) error {
	query := `
		UPDATE tasks
		SET title = ?, category = ?, project_id = ?, notes = ?, planned_start = ?, planned_duration = ?, archived = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update task", query,
		t.Title,
		t.Category,
		t.ProjectID,
		t.Notes,
		formatNullTime(t.PlannedStart),
		t.PlannedDuration,
		boolToInt(t.Archived),
		t.ID,
		t.UserID,
	)
}

// DeleteTask removes the task together with its time entries and unlinks
// its moments.
func (s *SQLStore) DeleteTask(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_entries WHERE task_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete task time entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE moments SET task_id = NULL WHERE task_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("unlink moments: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func scanTask(row scanner) (*Task, error) {
	var t Task
	var projectID, plannedStart sql.NullString
	var plannedDuration sql.NullInt64
	var archived int
	var createdAt string
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Category,
		&projectID,
		&t.Notes,
		&plannedStart,
		&plannedDuration,
		&archived,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if projectID.Valid {
		t.ProjectID = &projectID.String
	}
	t.PlannedStart = parseNullTime(plannedStart)
	if plannedDuration.Valid {
		d := int(plannedDuration.Int64)
		t.PlannedDuration = &d
	}
	t.Archived = archived == 1
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}
