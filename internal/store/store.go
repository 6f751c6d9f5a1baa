package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when a compare-and-swap update keeps losing
	// against concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")
)

type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByProvider(ctx context.Context, provider, subject string) (*User, error)

	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, userID, id string) (*Project, error)
	ListProjects(ctx context.Context, userID string) ([]Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, userID, id string) error

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, userID, id string) (*Task, error)
	ListTasks(ctx context.Context, userID string) ([]Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, userID, id string) error

	CreateTimeEntry(ctx context.Context, e *TimeEntry) error
	GetTimeEntry(ctx context.Context, userID, id string) (*TimeEntry, error)
	ListTimeEntries(ctx context.Context, userID string) ([]TimeEntry, error)
	ListTimeEntriesBetween(ctx context.Context, userID string, start, end time.Time) ([]TimeEntryWithProject, error)
	UpdateTimeEntry(ctx context.Context, e *TimeEntry) error
	DeleteTimeEntry(ctx context.Context, userID, id string) error

	CreateMoment(ctx context.Context, m *Moment) error
	GetMoment(ctx context.Context, userID, id string) (*Moment, error)
	ListMoments(ctx context.Context, userID string) ([]Moment, error)
	ListMomentsBetween(ctx context.Context, userID string, start, end time.Time) ([]Moment, error)
	UpdateMoment(ctx context.Context, m *Moment) error
	DeleteMoment(ctx context.Context, userID, id string) error

	CreateHabit(ctx context.Context, h *Habit) error
	GetHabit(ctx context.Context, userID, id string) (*Habit, error)
	ListHabits(ctx context.Context, userID string) ([]Habit, error)
	UpdateHabit(ctx context.Context, h *Habit) error
	DeleteHabit(ctx context.Context, userID, id string) error

	CreatePrimeItem(ctx context.Context, item *PrimeItem) error
	GetPrimeItem(ctx context.Context, userID, id string) (*PrimeItem, error)
	ListPrimeItems(ctx context.Context, userID string, filter PrimeItemFilter) ([]PrimeItem, error)
	ListPrimeCategories(ctx context.Context, userID string) ([]CategoryCount, error)
	UpdatePrimeItem(ctx context.Context, item *PrimeItem) error
	UpdatePrimeTimestamps(ctx context.Context, userID, id string, fn func(*PrimeItem) error) (*PrimeItem, error)
	DeletePrimeItem(ctx context.Context, userID, id string) error

	CreateReviewItem(ctx context.Context, item *ReviewItem) error
	GetReviewItem(ctx context.Context, userID, id string) (*ReviewItem, error)
	ListReviewItems(ctx context.Context, userID string) ([]ReviewItem, error)
	UpdateReviewItem(ctx context.Context, item *ReviewItem) error
	UpdateReviewTimestamps(ctx context.Context, userID, id string, fn func(*ReviewItem) error) (*ReviewItem, error)
	DeleteReviewItem(ctx context.Context, userID, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

// supported DSN formats:
//
//	Local sqlite (libsql): "file:./data/tracker.db" or ":memory:"
//	TursoDB: "libsql://[db-name]-[org].turso.io?authToken=..."
//	Pure Go sqlite: "sqlite:./data/tracker.db"
//
// NOTE: the sqlite: form uses modernc.org/sqlite and needs no cgo.
func NewStore(dsn string, opts ...Option) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "file:"), strings.HasPrefix(dsn, ":memory:"), strings.HasPrefix(dsn, "libsql://"):
		return Open(driverLibSQL, dsn, opts...)
	case strings.HasPrefix(dsn, "sqlite:"):
		return Open(driverSQLite, strings.TrimPrefix(dsn, "sqlite:"), opts...)
	default:
		return nil, fmt.Errorf("unsupported database DSN: %s (expected file:, :memory:, libsql:// or sqlite:)", dsn)
	}
}
