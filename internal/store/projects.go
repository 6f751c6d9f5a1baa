package store

import (
	"context"
	"database/sql"
	"fmt"
)

const projectColumns = `id, user_id, name, description, color, archived, created_at`

func (s *SQLStore) CreateProject(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		p.Color,
		boolToInt(p.Archived),
		formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *SQLStore) GetProject(ctx context.Context, userID, id string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ? AND user_id = ?`
	p, err := scanProject(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *SQLStore) UpdateProject(ctx context.Context, p *Project) error {
	query := `
		UPDATE projects
		SET name = ?, description = ?, color = ?, archived = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update project", query,
		p.Name,
		p.Description,
		p.Color,
		boolToInt(p.Archived),
		p.ID,
		p.UserID,
	)
}

// DeleteProject removes the project and unlinks its tasks.
func (s *SQLStore) DeleteProject(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET project_id = NULL WHERE project_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("unlink tasks: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var archived int
	var createdAt string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Color,
		&archived,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.Archived = archived == 1
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
