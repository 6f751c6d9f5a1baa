package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tracker-api/internal/api"
	"tracker-api/internal/config"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestApp(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 0, HandlerTimeout: 5 * time.Second, AllowedOrigins: origins},
		Database: config.DatabaseConfig{URL: "sqlite:" + filepath.Join(t.TempDir(), "app.db"), SwapRetries: 5},
		Clerk:    config.ClerkConfig{DevUserEmail: "dev@example.com"},
		Cache:    config.CacheConfig{CategoryTTL: time.Minute},
	}
	s, err := openStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	primes := api.NewPrimeService(s, api.NewCache(cfg.Cache.CategoryTTL))
	app := &app{
		config:   cfg,
		store:    s,
		handlers: api.NewHandlers(primes, api.NewReviewService(s), s),
	}
	return app.routes()
}

func call(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func mustCreate(t *testing.T, h http.Handler, path string, body any) map[string]any {
	t.Helper()
	w := call(t, h, http.MethodPost, path, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST %s: status %d: %s", path, w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newTestApp(t)
	w := call(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestApp(t, "https://tracker.example.com")

	w := call(t, h, http.MethodOptions, "/api/projects", nil, "Origin", "https://tracker.example.com")
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://tracker.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	w = call(t, h, http.MethodOptions, "/api/projects", nil, "Origin", "https://evil.example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestTaskEntryFlow(t *testing.T) {
	h := newTestApp(t)

	project := mustCreate(t, h, "/api/projects", map[string]any{"name": "Thesis", "color": "#ff0000"})
	task := mustCreate(t, h, "/api/tasks", map[string]any{"title": "Write chapter 2", "project": project["id"]})
	if task["category"] != "other" {
		t.Errorf("task category = %v, want default other", task["category"])
	}

	started := time.Now().UTC().Add(-time.Minute)
	entry := mustCreate(t, h, "/api/time-entries", map[string]any{
		"task":       task["id"],
		"started_at": started.Format(time.RFC3339Nano),
	})
	if entry["task_title"] != "Write chapter 2" {
		t.Errorf("task_title = %v, want the task's title", entry["task_title"])
	}
	if entry["ended_at"] != nil {
		t.Errorf("ended_at = %v, want null for a running entry", entry["ended_at"])
	}

	mustCreate(t, h, "/api/moments", map[string]any{"description": "Outline done", "task": task["id"]})

	w := call(t, h, http.MethodGet, "/api/today-entries", nil, api.TimezoneHeader, "UTC")
	if w.Code != http.StatusOK {
		t.Fatalf("today: status %d: %s", w.Code, w.Body.String())
	}
	var feed []struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed) != 2 || feed[0].Type != "moment" || feed[1].Type != "time_entry" {
		t.Fatalf("feed = %+v", feed)
	}
	if feed[1].Data["project_name"] != "Thesis" || feed[1].Data["project_color"] != "#ff0000" {
		t.Errorf("time entry not enriched: %v", feed[1].Data)
	}
	if feed[0].Data["task_title"] != "Write chapter 2" {
		t.Errorf("moment task_title = %v", feed[0].Data["task_title"])
	}

	// stopping the entry derives its duration
	ended := started.Add(90 * time.Second)
	w = call(t, h, http.MethodPatch, "/api/time-entries/"+entry["id"].(string), map[string]any{
		"ended_at": ended.Format(time.RFC3339Nano),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("stop: status %d: %s", w.Code, w.Body.String())
	}
	var stopped store.TimeEntry
	if err := json.Unmarshal(w.Body.Bytes(), &stopped); err != nil {
		t.Fatal(err)
	}
	if stopped.DurationSeconds != 90 {
		t.Errorf("duration = %d, want 90", stopped.DurationSeconds)
	}

	// deleting the task removes its entries
	if w := call(t, h, http.MethodDelete, "/api/tasks/"+task["id"].(string), nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete task: status %d", w.Code)
	}
	if w := call(t, h, http.MethodGet, "/api/time-entries/"+entry["id"].(string), nil); w.Code != http.StatusNotFound {
		t.Errorf("entry after task delete: status %d, want 404", w.Code)
	}
}

func TestTaskProjectMustBeOwned(t *testing.T) {
	h := newTestApp(t)
	w := call(t, h, http.MethodPost, "/api/tasks", map[string]any{"title": "x", "project": uuid.NewString()})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestPatchTaskClearsProject(t *testing.T) {
	h := newTestApp(t)
	project := mustCreate(t, h, "/api/projects", map[string]any{"name": "P"})
	task := mustCreate(t, h, "/api/tasks", map[string]any{"title": "T", "project": project["id"]})

	w := call(t, h, http.MethodPatch, "/api/tasks/"+task["id"].(string), map[string]any{"notes": "n"})
	var got map[string]any
	json.Unmarshal(w.Body.Bytes(), &got)
	if got["project"] != project["id"] {
		t.Fatalf("absent project field changed project to %v", got["project"])
	}

	w = call(t, h, http.MethodPatch, "/api/tasks/"+task["id"].(string), map[string]any{"project": nil})
	json.Unmarshal(w.Body.Bytes(), &got)
	if got["project"] != nil {
		t.Errorf("project = %v, want null", got["project"])
	}
}

func TestValidationErrors(t *testing.T) {
	h := newTestApp(t)
	tests := []struct {
		path string
		body map[string]any
	}{
		{"/api/projects", map[string]any{"name": ""}},
		{"/api/projects", map[string]any{"name": "p", "color": "red"}},
		{"/api/habits", map[string]any{"name": "run", "daily_target": -1}},
		{"/api/moments", map[string]any{"category": "general"}},
		{"/api/time-entries", map[string]any{"started_at": time.Now().Format(time.RFC3339)}},
	}
	for _, tt := range tests {
		w := call(t, h, http.MethodPost, tt.path, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST %s %v: status = %d, want 400", tt.path, tt.body, w.Code)
		}
	}
}

func TestHabitDefaults(t *testing.T) {
	h := newTestApp(t)
	habit := mustCreate(t, h, "/api/habits", map[string]any{"name": "Read", "daily_target": 1})
	if habit["is_active"] != true || habit["daily_target"] != float64(1) {
		t.Errorf("habit = %v", habit)
	}
}

func TestPrimeRoutesWired(t *testing.T) {
	h := newTestApp(t)
	item := mustCreate(t, h, "/api/prime-items", map[string]any{"title": "Bayes", "category": "stats"})

	w := call(t, h, http.MethodPost, "/api/prime-items/"+item["id"].(string)+"/log_prime", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("log_prime: status %d: %s", w.Code, w.Body.String())
	}
	var view api.PrimeItemView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.TotalCount != 1 || view.TodayCount != 1 {
		t.Errorf("view = %+v", view)
	}

	w = call(t, h, http.MethodGet, "/api/prime-items/categories", nil)
	var cats []store.CategoryCount
	json.Unmarshal(w.Body.Bytes(), &cats)
	if len(cats) != 1 || cats[0].Category != "stats" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestMigrateCommandIsIdempotent(t *testing.T) {
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "m.db")
	cfg := &config.Config{Database: config.DatabaseConfig{URL: dsn, SwapRetries: 1}}
	for i := 0; i < 2; i++ {
		s, err := openStore(cfg)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if _, err := s.ListProjects(context.Background(), uuid.NewString()); err != nil {
			t.Fatal(err)
		}
		s.Close()
	}
}
