package store

import (
	"context"
	"database/sql"
	"fmt"
)

const reviewItemColumns = `id, user_id, title, description, category, review_timestamps, first_studied_at, archived, created_at`

func (s *SQLStore) CreateReviewItem(ctx context.Context, item *ReviewItem) error {
	timestamps, err := encodeLog(item.ReviewTimestamps)
	if err != nil {
		return fmt.Errorf("marshal review timestamps: %w", err)
	}

	query := `
		INSERT INTO review_items (` + reviewItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Title,
		item.Description,
		item.Category,
		timestamps,
		formatNullTime(item.FirstStudiedAt),
		boolToInt(item.Archived),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert review item: %w", err)
	}
	return nil
}

func (s *SQLStore) GetReviewItem(ctx context.Context, userID, id string) (*ReviewItem, error) {
	item, _, err := s.getReviewItem(ctx, userID, id)
	return item, err
}

func (s *SQLStore) getReviewItem(ctx context.Context, userID, id string) (*ReviewItem, string, error) {
	query := `SELECT ` + reviewItemColumns + ` FROM review_items WHERE id = ? AND user_id = ?`
	item, raw, err := scanReviewItem(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	return item, raw, err
}

func (s *SQLStore) ListReviewItems(ctx context.Context, userID string) ([]ReviewItem, error) {
	query := `SELECT ` + reviewItemColumns + ` FROM review_items WHERE user_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query review items: %w", err)
	}
	defer rows.Close()

	items := []ReviewItem{}
	for rows.Next() {
		item, _, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateReviewItem writes the item's metadata. The timestamp log and
// first_studied_at only change through UpdateReviewTimestamps.
func (s *SQLStore) UpdateReviewItem(ctx context.Context, item *ReviewItem) error {
	query := `
		UPDATE review_items
		SET title = ?, description = ?, category = ?, archived = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update review item", query,
		item.Title,
		item.Description,
		item.Category,
		boolToInt(item.Archived),
		item.ID,
		item.UserID,
	)
}

// UpdateReviewTimestamps is the review item counterpart of
// UpdatePrimeTimestamps.
func (s *SQLStore) UpdateReviewTimestamps(ctx context.Context, userID, id string, fn func(*ReviewItem) error) (*ReviewItem, error) {
	for attempt := 0; attempt < s.swapRetries; attempt++ {
		item, raw, err := s.getReviewItem(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := fn(item); err != nil {
			return nil, err
		}

		timestamps, err := encodeLog(item.ReviewTimestamps)
		if err != nil {
			return nil, fmt.Errorf("marshal review timestamps: %w", err)
		}
		query := `
			UPDATE review_items
			SET review_timestamps = ?, first_studied_at = ?
			WHERE id = ? AND user_id = ? AND review_timestamps = ?
		`
		result, err := s.db.ExecContext(ctx, query,
			timestamps,
			formatNullTime(item.FirstStudiedAt),
			id,
			userID,
			raw,
		)
		if err != nil {
			return nil, fmt.Errorf("swap review timestamps: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 1 {
			return item, nil
		}
	}
	return nil, ErrConflict
}

func (s *SQLStore) DeleteReviewItem(ctx context.Context, userID, id string) error {
	return s.execOwned(ctx, "delete review item", `DELETE FROM review_items WHERE id = ? AND user_id = ?`, id, userID)
}

func scanReviewItem(row scanner) (*ReviewItem, string, error) {
	var item ReviewItem
	var raw string
	var firstStudiedAt sql.NullString
	var archived int
	var createdAt string
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.Category,
		&raw,
		&firstStudiedAt,
		&archived,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, "", err
	}
	if err != nil {
		return nil, "", fmt.Errorf("scan review item: %w", err)
	}
	item.ReviewTimestamps = decodeLog(raw)
	item.FirstStudiedAt = parseNullTime(firstStudiedAt)
	item.Archived = archived == 1
	item.CreatedAt = parseTime(createdAt)
	return &item, raw, nil
}
