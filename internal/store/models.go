package store

import (
	"encoding/json"
	"time"

	"tracker-api/internal/cadence"
)

type User struct {
	ID              string
	Email           string
	AuthProvider    *string // "clerk" or "dev"
	ProviderSubject *string // provider's user ID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

type Task struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	ProjectID       *string    `json:"project"`
	Notes           string     `json:"notes"`
	PlannedStart    *time.Time `json:"planned_start"`
	PlannedDuration *int       `json:"planned_duration"`
	Archived        bool       `json:"archived"`
	CreatedAt       time.Time  `json:"created_at"`
}

type TimeEntry struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user"`
	TaskID          string          `json:"task"`
	TaskTitle       string          `json:"task_title"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at"`
	DurationSeconds int             `json:"duration_seconds"`
	Notes           string          `json:"notes"`
	Breaks          json.RawMessage `json:"breaks"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsActive reports whether the entry is still running.
func (e TimeEntry) IsActive() bool {
	return e.EndedAt == nil
}

// ProjectRef is the project a time entry belongs to through its task.
type ProjectRef struct {
	ID    string
	Name  string
	Color string
}

type TimeEntryWithProject struct {
	TimeEntry
	Project *ProjectRef
}

type Moment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	TaskID      *string   `json:"task"`
	TaskTitle   string    `json:"task_title"`
	IsMilestone bool      `json:"is_milestone"`
	CreatedAt   time.Time `json:"created_at"`
}

type Habit struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user"`
	Name          string    `json:"name"`
	DailyTarget   int       `json:"daily_target"`
	WeeklyTarget  int       `json:"weekly_target"`
	MonthlyTarget int       `json:"monthly_target"`
	DailyCount    int       `json:"daily_count"`
	WeeklyCount   int       `json:"weekly_count"`
	MonthlyCount  int       `json:"monthly_count"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type PrimeItem struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	PrimeTimestamps cadence.Log `json:"prime_timestamps"`
	LastPrimedAt    *time.Time  `json:"last_primed_at"`
	Archived        bool        `json:"archived"`
	CreatedAt       time.Time   `json:"created_at"`
}

type PrimeItemFilter struct {
	Category string
	// Search matches title or description, case-insensitively.
	Search string
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type ReviewItem struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Category         string      `json:"category"`
	ReviewTimestamps cadence.Log `json:"review_timestamps"`
	FirstStudiedAt   *time.Time  `json:"first_studied_at"`
	Archived         bool        `json:"archived"`
	CreatedAt        time.Time   `json:"created_at"`
}
