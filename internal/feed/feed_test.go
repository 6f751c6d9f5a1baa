package feed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tracker-api/internal/feed"
	"tracker-api/internal/store"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestResolveDayWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 3, 30, 0, 0, time.UTC)

	w := feed.ResolveDayWindow("America/New_York", now)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	wantStart := time.Date(2024, 3, 9, 0, 0, 0, 0, ny)
	if !w.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", w.Start, wantStart)
	}
	if got := w.End.Sub(w.Start); got != 24*time.Hour {
		t.Errorf("window length = %v, want 24h", got)
	}
	if !w.Contains(now) {
		t.Errorf("window %v does not contain now", w)
	}
}

func TestResolveDayWindowFallsBackToUTC(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	utc := feed.ResolveDayWindow("UTC", now)

	for _, name := range []string{"Not/AZone", "", "Local", "../etc/passwd"} {
		got := feed.ResolveDayWindow(name, now)
		if !got.Start.Equal(utc.Start) || !got.End.Equal(utc.End) {
			t.Errorf("ResolveDayWindow(%q) = %v, want %v", name, got, utc)
		}
	}

	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !utc.Start.Equal(wantStart) {
		t.Errorf("UTC start = %v, want %v", utc.Start, wantStart)
	}
}

func TestDayWindowHalfOpen(t *testing.T) {
	w := feed.ResolveDayWindow("UTC", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	if !w.Contains(w.Start) {
		t.Error("start not contained")
	}
	if w.Contains(w.End) {
		t.Error("end contained")
	}
}

func TestMergeOrder(t *testing.T) {
	entries := []store.TimeEntryWithProject{
		{TimeEntry: store.TimeEntry{ID: "e10", StartedAt: mustTime(t, "2024-01-01T10:00:00Z")}},
		{TimeEntry: store.TimeEntry{ID: "e09", StartedAt: mustTime(t, "2024-01-01T09:00:00Z")}},
	}
	moments := []store.Moment{
		{ID: "m0930", Timestamp: mustTime(t, "2024-01-01T09:30:00Z")},
	}

	got := feed.Merge(entries, moments)
	want := []struct{ typ, id string }{
		{feed.TypeTimeEntry, "e10"},
		{feed.TypeMoment, "m0930"},
		{feed.TypeTimeEntry, "e09"},
	}
	if len(got) != len(want) {
		t.Fatalf("merged %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].ID != w.id {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, got[i].Type, got[i].ID, w.typ, w.id)
		}
	}
}

func TestMergeSortsMixedOffsetsAndPrecision(t *testing.T) {
	// As strings, "09:30:00+02:00" (07:30Z) would sort first.
	entries := []store.TimeEntryWithProject{
		{TimeEntry: store.TimeEntry{ID: "a", StartedAt: mustTime(t, "2024-01-01T08:00:00.5Z")}},
		{TimeEntry: store.TimeEntry{ID: "b", StartedAt: mustTime(t, "2024-01-01T08:00:00Z")}},
	}
	moments := []store.Moment{
		{ID: "c", Timestamp: mustTime(t, "2024-01-01T09:30:00+02:00")},
	}

	got := feed.Merge(entries, moments)
	if len(got) != 3 {
		t.Fatalf("merged %d entries, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].SortTime.Before(got[i].SortTime) {
			t.Fatalf("not descending at %d: %v < %v", i, got[i-1].SortTime, got[i].SortTime)
		}
	}
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("order = %s,%s,%s, want a,b,c", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMergeEnrichesOnlyLinkedEntries(t *testing.T) {
	at := mustTime(t, "2024-01-01T10:00:00Z")
	entries := []store.TimeEntryWithProject{
		{
			TimeEntry: store.TimeEntry{ID: "linked", StartedAt: at},
			Project:   &store.ProjectRef{ID: "p1", Name: "Thesis", Color: "#6366f1"},
		},
		{TimeEntry: store.TimeEntry{ID: "loose", StartedAt: at.Add(-time.Hour)}},
	}

	got := feed.Merge(entries, nil)
	if len(got) != 2 {
		t.Fatalf("merged %d entries, want 2", len(got))
	}

	var linked, loose map[string]any
	decode(t, got[0], &linked)
	decode(t, got[1], &loose)

	if linked["data"].(map[string]any)["project_name"] != "Thesis" ||
		linked["data"].(map[string]any)["project_color"] != "#6366f1" ||
		linked["data"].(map[string]any)["project_id"] != "p1" {
		t.Errorf("linked data = %v", linked["data"])
	}
	for _, key := range []string{"project_name", "project_color", "project_id"} {
		if _, ok := loose["data"].(map[string]any)[key]; ok {
			t.Errorf("loose entry has %s", key)
		}
	}
	if linked["type"] != "time_entry" || linked["sort_time"] != "2024-01-01T10:00:00Z" {
		t.Errorf("linked envelope = %v", linked)
	}
}

func TestMergeEmpty(t *testing.T) {
	got := feed.Merge(nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Merge(nil, nil) = %#v, want empty slice", got)
	}
}

type fakeFetcher struct {
	entries  []store.TimeEntryWithProject
	moments  []store.Moment
	err      error
	gotUser  string
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakeFetcher) ListTimeEntriesBetween(_ context.Context, userID string, start, end time.Time) ([]store.TimeEntryWithProject, error) {
	f.gotUser, f.gotStart, f.gotEnd = userID, start, end
	return f.entries, f.err
}

func (f *fakeFetcher) ListMomentsBetween(_ context.Context, userID string, start, end time.Time) ([]store.Moment, error) {
	return f.moments, nil
}

func TestToday(t *testing.T) {
	f := &fakeFetcher{
		entries: []store.TimeEntryWithProject{{TimeEntry: store.TimeEntry{ID: "e", StartedAt: mustTime(t, "2024-01-01T09:00:00Z")}}},
		moments: []store.Moment{{ID: "m", Timestamp: mustTime(t, "2024-01-01T11:00:00Z")}},
	}
	now := mustTime(t, "2024-01-01T12:00:00Z")

	got, err := feed.Today(context.Background(), f, "user-1", "Invalid/Zone", now)
	if err != nil {
		t.Fatal(err)
	}
	if f.gotUser != "user-1" {
		t.Errorf("fetched for %q, want user-1", f.gotUser)
	}
	if !f.gotStart.Equal(mustTime(t, "2024-01-01T00:00:00Z")) || !f.gotEnd.Equal(mustTime(t, "2024-01-02T00:00:00Z")) {
		t.Errorf("window = [%v, %v)", f.gotStart, f.gotEnd)
	}
	if len(got) != 2 || got[0].ID != "m" || got[1].ID != "e" {
		t.Errorf("feed = %+v", got)
	}
}

func TestTodayPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{err: boom}
	if _, err := feed.Today(context.Background(), f, "u", "UTC", time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func decode(t *testing.T, e feed.Entry, out *map[string]any) {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatal(err)
	}
}
