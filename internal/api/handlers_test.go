package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tracker-api/internal/cadence"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

type testAPI struct {
	router   *gin.Engine
	store    store.Store
	handlers *Handlers
	userID   string
}

func newTestAPI(t *testing.T, now time.Time) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	binding.EnableDecoderUseNumber = true

	st, err := store.NewStore("sqlite:file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	provider, subject := providerDev, "tester@example.com"
	u := &store.User{
		ID:              uuid.NewString(),
		Email:           subject,
		AuthProvider:    &provider,
		ProviderSubject: &subject,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	clock := func() time.Time { return now }
	primes := NewPrimeService(st, NewCache(time.Minute))
	primes.Now = clock
	reviews := NewReviewService(st)
	reviews.Now = clock
	h := NewHandlers(primes, reviews, st)
	h.now = clock

	r := gin.New()
	authed := r.Group("/api", func(c *gin.Context) {
		SetUserID(c, u.ID)
		c.Next()
	})
	authed.GET("/prime-items", h.ListPrimeItems)
	authed.POST("/prime-items", h.CreatePrimeItem)
	authed.GET("/prime-items/categories", h.PrimeCategories)
	authed.GET("/prime-items/:id", h.GetPrimeItem)
	authed.PATCH("/prime-items/:id", h.UpdatePrimeItem)
	authed.DELETE("/prime-items/:id", h.DeletePrimeItem)
	authed.POST("/prime-items/:id/log_prime", h.LogPrime)
	authed.POST("/review-items", h.CreateReviewItem)
	authed.GET("/review-items/:id", h.GetReviewItem)
	authed.POST("/review-items/:id/log_review", h.LogReview)
	authed.GET("/today-entries", h.TodayEntries)
	r.GET("/unauthed", h.ListPrimeItems)

	return &testAPI{router: r, store: st, handlers: h, userID: u.ID}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (a *testAPI) createPrime(t *testing.T, body map[string]any) store.PrimeItem {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/prime-items", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create prime item: status %d: %s", w.Code, w.Body.String())
	}
	item := decode[store.PrimeItem](t, w)
	got, err := a.store.GetPrimeItem(context.Background(), a.userID, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	return *got
}

func TestLogPrimeReturnsSummary(t *testing.T) {
	now := time.UnixMilli(1700000000000).UTC()
	a := newTestAPI(t, now)

	item := a.createPrime(t, map[string]any{
		"title":            "Quadratic formula",
		"prime_timestamps": []any{1000, "bad", nil, 5000, "3000"},
	})

	w := a.do(t, http.MethodPost, "/api/prime-items/"+item.ID+"/log_prime", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	view := decode[PrimeItemView](t, w)

	if view.TotalCount != 6 {
		t.Errorf("total_count = %d, want 6", view.TotalCount)
	}
	if view.LastPrimedAt == nil || !view.LastPrimedAt.Equal(now) {
		t.Errorf("last_primed_at = %v, want %v", view.LastPrimedAt, now)
	}
	if view.FirstPrimedAt == nil || !view.FirstPrimedAt.Equal(cadence.Instant(1000)) {
		t.Errorf("first_primed_at = %v, want %v", view.FirstPrimedAt, cadence.Instant(1000))
	}
	if view.TodayCount != 1 || view.WeekCount != 1 || view.MonthCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", view.TodayCount, view.WeekCount, view.MonthCount)
	}

	stored, err := a.store.GetPrimeItem(context.Background(), a.userID, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := cadence.Normalize(stored.PrimeTimestamps); len(got) != 4 || got[3] != 1700000000000 {
		t.Errorf("stored log = %v", stored.PrimeTimestamps)
	}
	if stored.LastPrimedAt == nil || !stored.LastPrimedAt.Equal(now) {
		t.Errorf("stored last_primed_at = %v, want %v", stored.LastPrimedAt, now)
	}
}

func TestLogPrimeUnknownItem(t *testing.T) {
	a := newTestAPI(t, time.Now())
	w := a.do(t, http.MethodPost, "/api/prime-items/"+uuid.NewString()+"/log_prime", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), ErrorCodeNotFound) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreatePrimeIgnoresClientLastPrimedAt(t *testing.T) {
	a := newTestAPI(t, time.Now())
	item := a.createPrime(t, map[string]any{
		"title":            "Krebs cycle",
		"prime_timestamps": []any{1000, 5000},
		"last_primed_at":   "2001-01-01T00:00:00Z",
	})
	if item.LastPrimedAt == nil || !item.LastPrimedAt.Equal(cadence.Instant(5000)) {
		t.Errorf("last_primed_at = %v, want %v", item.LastPrimedAt, cadence.Instant(5000))
	}

	w := a.do(t, http.MethodPatch, "/api/prime-items/"+item.ID, map[string]any{
		"prime_timestamps": []any{},
		"last_primed_at":   "2001-01-01T00:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	got := decode[store.PrimeItem](t, w)
	if got.LastPrimedAt != nil {
		t.Errorf("last_primed_at = %v, want null after clearing the log", got.LastPrimedAt)
	}
}

func TestCreatePrimeValidation(t *testing.T) {
	a := newTestAPI(t, time.Now())

	tests := []struct {
		name string
		body any
	}{
		{"missing title", map[string]any{"category": "math"}},
		{"blank title", map[string]any{"title": "   "}},
		{"long category", map[string]any{"title": "x", "category": strings.Repeat("c", 101)}},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, "/api/prime-items", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), ErrorCodeValidation) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestListPrimeItemsVariants(t *testing.T) {
	a := newTestAPI(t, time.Now())
	a.createPrime(t, map[string]any{"title": "Derivatives", "category": "math", "prime_timestamps": []any{1000}})
	a.createPrime(t, map[string]any{"title": "Mitosis", "category": "biology"})

	w := a.do(t, http.MethodGet, "/api/prime-items?category=math", nil)
	summaries := decode[[]map[string]any](t, w)
	if len(summaries) != 1 {
		t.Fatalf("got %d items, want 1", len(summaries))
	}
	if _, ok := summaries[0]["prime_timestamps"]; ok {
		t.Error("summary variant exposes prime_timestamps")
	}
	if summaries[0]["total_count"] != float64(1) {
		t.Errorf("total_count = %v, want 1", summaries[0]["total_count"])
	}

	w = a.do(t, http.MethodGet, "/api/prime-items?include_timestamps=true&search=MITO", nil)
	records := decode[[]map[string]any](t, w)
	if len(records) != 1 {
		t.Fatalf("got %d items, want 1", len(records))
	}
	if _, ok := records[0]["prime_timestamps"]; !ok {
		t.Error("full variant is missing prime_timestamps")
	}
	if _, ok := records[0]["total_count"]; ok {
		t.Error("full variant carries summary counts")
	}
}

func TestPrimeCategoriesCacheInvalidation(t *testing.T) {
	a := newTestAPI(t, time.Now())
	a.createPrime(t, map[string]any{"title": "a", "category": "math"})

	w := a.do(t, http.MethodGet, "/api/prime-items/categories", nil)
	if got := decode[[]store.CategoryCount](t, w); len(got) != 1 || got[0].Count != 1 {
		t.Fatalf("categories = %+v", got)
	}

	// a direct store write bypasses invalidation, so the cached body stays
	if err := a.store.CreatePrimeItem(context.Background(), &store.PrimeItem{
		ID: uuid.NewString(), UserID: a.userID, Title: "b", Category: "math", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	w = a.do(t, http.MethodGet, "/api/prime-items/categories", nil)
	if got := decode[[]store.CategoryCount](t, w); got[0].Count != 1 {
		t.Errorf("expected cached count 1, got %+v", got)
	}

	a.createPrime(t, map[string]any{"title": "c", "category": "math"})
	w = a.do(t, http.MethodGet, "/api/prime-items/categories", nil)
	if got := decode[[]store.CategoryCount](t, w); got[0].Count != 3 {
		t.Errorf("after write count = %+v, want 3", got)
	}
}

func TestLogReviewSetsFirstStudied(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	a := newTestAPI(t, now)

	w := a.do(t, http.MethodPost, "/api/review-items", map[string]any{"title": "Spanish verbs"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	created := decode[store.ReviewItem](t, w)

	w = a.do(t, http.MethodPost, "/api/review-items/"+created.ID+"/log_review", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	view := decode[ReviewItemView](t, w)
	if view.TotalCount != 1 || view.TodayCount != 1 {
		t.Errorf("counts = %+v", view)
	}
	if view.FirstStudiedAt == nil || !view.FirstStudiedAt.Equal(now) {
		t.Errorf("first_studied_at = %v, want %v", view.FirstStudiedAt, now)
	}
	if view.LastReviewedAt == nil || !view.LastReviewedAt.Equal(now) {
		t.Errorf("last_reviewed_at = %v, want %v", view.LastReviewedAt, now)
	}

	// first_studied_at sticks to the first review
	a.handlers.reviews.Now = func() time.Time { return now.Add(time.Hour) }
	w = a.do(t, http.MethodPost, "/api/review-items/"+created.ID+"/log_review", nil)
	view = decode[ReviewItemView](t, w)
	if !view.FirstStudiedAt.Equal(now) {
		t.Errorf("first_studied_at moved to %v", view.FirstStudiedAt)
	}
	if view.TotalCount != 2 || !view.LastReviewedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("after second review = %+v", view)
	}
}

func TestTodayEntriesUsesTimezoneHeader(t *testing.T) {
	// 03:30 UTC on March 10 is still March 9 in New York
	now := time.Date(2024, 3, 10, 3, 30, 0, 0, time.UTC)
	if _, err := time.LoadLocation("America/New_York"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := newTestAPI(t, now)
	ctx := context.Background()

	task := &store.Task{ID: uuid.NewString(), UserID: a.userID, Title: "Write", Category: "work", CreatedAt: now}
	if err := a.store.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	entry := &store.TimeEntry{
		ID: uuid.NewString(), UserID: a.userID, TaskID: task.ID, TaskTitle: task.Title,
		StartedAt: time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC), CreatedAt: now,
	}
	if err := a.store.CreateTimeEntry(ctx, entry); err != nil {
		t.Fatal(err)
	}
	moment := &store.Moment{
		ID: uuid.NewString(), UserID: a.userID, Description: "Shipped",
		Timestamp: time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC), CreatedAt: now,
	}
	if err := a.store.CreateMoment(ctx, moment); err != nil {
		t.Fatal(err)
	}

	w := a.do(t, http.MethodGet, "/api/today-entries", nil, TimezoneHeader, "America/New_York")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	got := decode[[]struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}](t, w)
	if len(got) != 2 || got[0].ID != moment.ID || got[1].ID != entry.ID {
		t.Errorf("feed = %+v, want moment then entry", got)
	}

	// the UTC day of March 10 holds neither record
	w = a.do(t, http.MethodGet, "/api/today-entries", nil, TimezoneHeader, "Nowhere/Invalid")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("fallback feed = %s, want []", body)
	}
}

func TestMissingUserContext(t *testing.T) {
	a := newTestAPI(t, time.Now())
	w := a.do(t, http.MethodGet, "/unauthed", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestTruthy(t *testing.T) {
	for v, want := range map[string]bool{
		"": false, "0": false, "false": false, "False": false, "off": false,
		"1": true, "true": true, "yes": true, "x": true,
	} {
		if got := truthy(v); got != want {
			t.Errorf("truthy(%q) = %v, want %v", v, got, want)
		}
	}
}
