// Package feed builds the "today" view: time entries and moments of one
// local day, merged newest first.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tracker-api/internal/store"
)

const (
	TypeTimeEntry = "time_entry"
	TypeMoment    = "moment"
)

// DayWindow is the half-open interval [Start, End).
type DayWindow struct {
	Start time.Time
	End   time.Time
}

func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ResolveDayWindow returns the local day containing now in the named IANA
// zone. Names that cannot be resolved fall back to UTC.
func ResolveDayWindow(tzName string, now time.Time) DayWindow {
	loc := resolveLocation(tzName)
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DayWindow{Start: start, End: start.Add(24 * time.Hour)}
}

func resolveLocation(name string) *time.Location {
	// LoadLocation maps "" to UTC and "Local" to the server zone; neither is a
	// caller-supplied IANA name.
	if name == "" || name == "Local" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Fetcher reads one user's records inside a window, newest first.
type Fetcher interface {
	ListTimeEntriesBetween(ctx context.Context, userID string, start, end time.Time) ([]store.TimeEntryWithProject, error)
	ListMomentsBetween(ctx context.Context, userID string, start, end time.Time) ([]store.Moment, error)
}

func Fetch(ctx context.Context, f Fetcher, userID string, w DayWindow) ([]store.TimeEntryWithProject, []store.Moment, error) {
	entries, err := f.ListTimeEntriesBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch time entries: %w", err)
	}
	moments, err := f.ListMomentsBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch moments: %w", err)
	}
	return entries, moments, nil
}

// Entry is one item of the merged feed.
type Entry struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	Data     any       `json:"data"`
	SortTime time.Time `json:"sort_time"`
}

// TimeEntryData is a time entry annotated with its task's project.
type TimeEntryData struct {
	store.TimeEntry
	ProjectName  *string `json:"project_name,omitempty"`
	ProjectColor *string `json:"project_color,omitempty"`
	ProjectID    *string `json:"project_id,omitempty"`
}

// Merge combines entries and moments into a single feed sorted by time,
// newest first. Items with equal times keep their input order, time entries
// before moments.
func Merge(entries []store.TimeEntryWithProject, moments []store.Moment) []Entry {
	out := make([]Entry, 0, len(entries)+len(moments))
	for _, e := range entries {
		data := TimeEntryData{TimeEntry: e.TimeEntry}
		if p := e.Project; p != nil {
			data.ProjectName = &p.Name
			data.ProjectColor = &p.Color
			data.ProjectID = &p.ID
		}
		out = append(out, Entry{
			Type:     TypeTimeEntry,
			ID:       e.ID,
			Data:     data,
			SortTime: e.StartedAt.UTC(),
		})
	}
	for _, m := range moments {
		out = append(out, Entry{
			Type:     TypeMoment,
			ID:       m.ID,
			Data:     m,
			SortTime: m.Timestamp.UTC(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortTime.After(out[j].SortTime)
	})
	return out
}

// Today returns the merged feed for the local day containing now.
func Today(ctx context.Context, f Fetcher, userID, tzName string, now time.Time) ([]Entry, error) {
	w := ResolveDayWindow(tzName, now)
	entries, moments, err := Fetch(ctx, f, userID, w)
	if err != nil {
		return nil, err
	}
	return Merge(entries, moments), nil
}
