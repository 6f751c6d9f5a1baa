package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const primeItemColumns = `id, user_id, title, description, category, prime_timestamps, last_primed_at, archived, created_at`

func (s *SQLStore) CreatePrimeItem(ctx context.Context, item *PrimeItem) error {
	timestamps, err := encodeLog(item.PrimeTimestamps)
	if err != nil {
		return fmt.Errorf("marshal prime timestamps: %w", err)
	}

	query := `
		INSERT INTO prime_items (` + primeItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.UserID,
		item.Title,
		item.Description,
		item.Category,
		timestamps,
		formatNullTime(item.LastPrimedAt),
		boolToInt(item.Archived),
		formatTime(item.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert prime item: %w", err)
	}
	return nil
}

func (s *SQLStore) GetPrimeItem(ctx context.Context, userID, id string) (*PrimeItem, error) {
	item, _, err := s.getPrimeItem(ctx, userID, id)
	return item, err
}

// getPrimeItem also returns the stored timestamp text for compare-and-swap.
func (s *SQLStore) getPrimeItem(ctx context.Context, userID, id string) (*PrimeItem, string, error) {
	query := `SELECT ` + primeItemColumns + ` FROM prime_items WHERE id = ? AND user_id = ?`
	item, raw, err := scanPrimeItem(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	return item, raw, err
}

// ListPrimeItems returns never-primed items first, then the least recently
// primed ones.
func (s *SQLStore) ListPrimeItems(ctx context.Context, userID string, filter PrimeItemFilter) ([]PrimeItem, error) {
	query := `SELECT ` + primeItemColumns + ` FROM prime_items WHERE user_id = ?`
	args := []any{userID}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY last_primed_at IS NOT NULL, last_primed_at, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prime items: %w", err)
	}
	defer rows.Close()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := []PrimeItem{}
	for rows.Next() {
		item, _, err := scanPrimeItem(rows)
		if err != nil {
			return nil, err
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Title), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListPrimeCategories counts the user's non-archived items per non-empty
// category, ordered by category name.
func (s *SQLStore) ListPrimeCategories(ctx context.Context, userID string) ([]CategoryCount, error) {
	query := `
		SELECT category, COUNT(*)
		FROM prime_items
		WHERE user_id = ? AND archived = 0 AND category != ''
		GROUP BY category
		ORDER BY category
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query prime categories: %w", err)
	}
	defer rows.Close()

	categories := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan prime category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdatePrimeItem writes the item's metadata. The timestamp log and
// last_primed_at only change through UpdatePrimeTimestamps.
func (s *SQLStore) UpdatePrimeItem(ctx context.Context, item *PrimeItem) error {
	query := `
		UPDATE prime_items
		SET title = ?, description = ?, category = ?, archived = ?
		WHERE id = ? AND user_id = ?
	`
	return s.execOwned(ctx, "update prime item", query,
		item.Title,
		item.Description,
		item.Category,
		boolToInt(item.Archived),
		item.ID,
		item.UserID,
	)
}

// UpdatePrimeTimestamps reads the item, lets fn change its timestamp log and
// last_primed_at, and writes both back only if the stored log is still the
// one that was read. A lost race re-reads and calls fn again.
func (s *SQLStore) UpdatePrimeTimestamps(ctx context.Context, userID, id string, fn func(*PrimeItem) error) (*PrimeItem, error) {
	for attempt := 0; attempt < s.swapRetries; attempt++ {
		item, raw, err := s.getPrimeItem(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := fn(item); err != nil {
			return nil, err
		}

		timestamps, err := encodeLog(item.PrimeTimestamps)
		if err != nil {
			return nil, fmt.Errorf("marshal prime timestamps: %w", err)
		}
		query := `
			UPDATE prime_items
			SET prime_timestamps = ?, last_primed_at = ?
			WHERE id = ? AND user_id = ? AND prime_timestamps = ?
		`
		result, err := s.db.ExecContext(ctx, query,
			timestamps,
			formatNullTime(item.LastPrimedAt),
			id,
			userID,
			raw,
		)
		if err != nil {
			return nil, fmt.Errorf("swap prime timestamps: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 1 {
			return item, nil
		}
	}
	return nil, ErrConflict
}

func (s *SQLStore) DeletePrimeItem(ctx context.Context, userID, id string) error {
	return s.execOwned(ctx, "delete prime item", `DELETE FROM prime_items WHERE id = ? AND user_id = ?`, id, userID)
}

func scanPrimeItem(row scanner) (*PrimeItem, string, error) {
	var item PrimeItem
	var raw string
	var lastPrimedAt sql.NullString
	var archived int
	var createdAt string
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.Category,
		&raw,
		&lastPrimedAt,
		&archived,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, "", err
	}
	if err != nil {
		return nil, "", fmt.Errorf("scan prime item: %w", err)
	}
	item.PrimeTimestamps = decodeLog(raw)
	item.LastPrimedAt = parseNullTime(lastPrimedAt)
	item.Archived = archived == 1
	item.CreatedAt = parseTime(createdAt)
	return &item, raw, nil
}
