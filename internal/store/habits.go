package store

import (
	"context"
	"database/sql"
	"fmt"
)

const habitColumns = `id, user_id, name, daily_target, weekly_target, monthly_target, daily_count, weekly_count, monthly_count, is_active, created_at`

func (s *SQLStore) CreateHabit(ctx context.Context, h *Habit) error {
	query := `
		INSERT INTO habits (` + habitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.UserID,
		h.Name,
		h.DailyTarget,
		h.WeeklyTarget,
		h.MonthlyTarget,
		h.DailyCount,
		h.WeeklyCount,
		h.MonthlyCount,
		boolToInt(h.IsActive),
		formatTime(h.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert habit: %w", err)
	}
	return nil
}

func (s *SQLStore) GetHabit(ctx context.Context, userID, id string) (*Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = ? AND user_id = ?`
	h, err := scanHabit(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

func (s *SQLStore) ListHabits(ctx context.Context, userID string) ([]Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	defer rows.Close()

	habits := []Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (s *SQLStore) UpdateHabit(ctx context.Context, h *Habit) error {
	query := `
		UPDATE habits
		SET name = ?, daily_target = ?, weekly_target = ?, monthly_target = ?,
			daily_count = ?, weekly_count = ?, monthly_count = ?, is_active = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update habit", query,
		h.Name,
		h.DailyTarget,
		h.WeeklyTarget,
		h.MonthlyTarget,
		h.DailyCount,
		h.WeeklyCount,
		h.MonthlyCount,
		boolToInt(h.IsActive),
		h.ID,
		h.UserID,
	)
}

func (s *SQLStore) DeleteHabit(ctx context.Context, userID, id string) error {
	return s.execOwned(ctx, "delete habit", `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
}

func scanHabit(row scanner) (*Habit, error) {
	var h Habit
	var active int
	var createdAt string
	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.DailyTarget,
		&h.WeeklyTarget,
		&h.MonthlyTarget,
		&h.DailyCount,
		&h.WeeklyCount,
		&h.MonthlyCount,
		&active,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan habit: %w", err)
	}
	h.IsActive = active == 1
	h.CreatedAt = parseTime(createdAt)
	return &h, nil
}
