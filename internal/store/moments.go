package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const momentColumns = `id, user_id, description, category, timestamp, task_id, task_title, is_milestone, created_at`

func (s *SQLStore) CreateMoment(ctx context.Context, m *Moment) error {
	query := `
		INSERT INTO moments (` + momentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.UserID,
		m.Description,
		m.Category,
		formatTime(m.Timestamp),
		m.TaskID,
		m.TaskTitle,
		boolToInt(m.IsMilestone),
		formatTime(m.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert moment: %w", err)
	}
	return nil
}

func (s *SQLStore) GetMoment(ctx context.Context, userID, id string) (*Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments WHERE id = ? AND user_id = ?`
	m, err := scanMoment(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

func (s *SQLStore) ListMoments(ctx context.Context, userID string) ([]Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments WHERE user_id = ? ORDER BY timestamp DESC`
	return s.queryMoments(ctx, query, userID)
}

// ListMomentsBetween returns the user's moments in [start, end), newest first.
func (s *SQLStore) ListMomentsBetween(ctx context.Context, userID string, start, end time.Time) ([]Moment, error) {
	query := `
		SELECT ` + momentColumns + ` FROM moments
		WHERE user_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
	`
	return s.queryMoments(ctx, query, userID, formatTime(start), formatTime(end))
}

func (s *SQLStore) queryMoments(ctx context.Context, query string, args ...any) ([]Moment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query moments: %w", err)
	}
	defer rows.Close()

	moments := []Moment{}
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, err
		}
		moments = append(moments, *m)
	}
	return moments, rows.Err()
}

func (s *SQLStore) UpdateMoment(ctx context.Context, m *Moment) error {
	query := `
		UPDATE moments
		SET description = ?, category = ?, timestamp = ?, task_id = ?, task_title = ?, is_milestone = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update moment", query,
		m.Description,
		m.Category,
		formatTime(m.Timestamp),
		m.TaskID,
		m.TaskTitle,
		boolToInt(m.IsMilestone),
		m.ID,
		m.UserID,
	)
}

func (s *SQLStore) DeleteMoment(ctx context.Context, userID, id string) error {
	return s.execOwned(ctx, "delete moment", `DELETE FROM moments WHERE id = ? AND user_id = ?`, id, userID)
}

func scanMoment(row scanner) (*Moment, error) {
	var m Moment
	var taskID sql.NullString
	var milestone int
	var timestamp, createdAt string
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Description,
		&m.Category,
		&timestamp,
		&taskID,
		&m.TaskTitle,
		&milestone,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan moment: %w", err)
	}
	m.Timestamp = parseTime(timestamp)
	if taskID.Valid {
		m.TaskID = &taskID.String
	}
	m.IsMilestone = milestone == 1
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}
