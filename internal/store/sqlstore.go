package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
	_ "modernc.org/sqlite"

	"tracker-api/internal/cadence"
)

const (
	driverLibSQL = "libsql"
	driverSQLite = "sqlite"

	defaultSwapRetries = 5
)

// timeLayout is fixed width so that stored times compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type SQLStore struct {
	db          *sql.DB
	swapRetries int
}

type Option func(*SQLStore)

// WithSwapRetries bounds how often a timestamp log update is retried after
// losing a race with another writer.
func WithSwapRetries(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.swapRetries = n
		}
	}
}

func Open(driver, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// every in-memory connection would otherwise get its own empty database
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		// Ignore error for remote TursoDB (may not support PRAGMA)
		_ = err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, swapRetries: defaultSwapRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// returns the database connection for migrations and tests
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, auth_provider, provider_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.AuthProvider,
		user.ProviderSubject,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, auth_provider, provider_subject, created_at, updated_at
		FROM users WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) GetUserByProvider(ctx context.Context, provider, subject string) (*User, error) {
	query := `
		SELECT id, email, auth_provider, provider_subject, created_at, updated_at
		FROM users WHERE auth_provider = ? AND provider_subject = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, provider, subject))
}

func (s *SQLStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAt, updatedAt string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.AuthProvider,
		&user.ProviderSubject,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	return &user, nil
}

// execOwned runs a single-row write scoped to a user and maps zero affected
// rows to ErrNotFound.
func (s *SQLStore) execOwned(ctx context.Context, what, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func encodeLog(log cadence.Log) (string, error) {
	if log == nil {
		log = cadence.Log{}
	}
	b, err := json.Marshal(log)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeLog keeps numbers as json.Number so large millisecond values survive
// a round trip unchanged. Text that is not a JSON array reads as an empty log.
func decodeLog(raw string) cadence.Log {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var log cadence.Log
	if err := dec.Decode(&log); err != nil || log == nil {
		return cadence.Log{}
	}
	return log
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

// boolToInt converts a boolean to SQLite integer (0 or 1).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
