package api

import (
	"time"

	"tracker-api/internal/cadence"
	"tracker-api/internal/store"
)

// PrimeItemView is the summary of a prime item. Counts are computed against
// the server clock at read time and never stored.
type PrimeItemView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	LastPrimedAt  *time.Time `json:"last_primed_at"`
	FirstPrimedAt *time.Time `json:"first_primed_at"`
	TotalCount    int        `json:"total_count"`
	TodayCount    int        `json:"today_count"`
	WeekCount     int        `json:"week_count"`
	MonthCount    int        `json:"month_count"`
}

// NewPrimeItemView summarizes item relative to ref. LastPrimedAt is the
// stored column; FirstPrimedAt is derived from the log on every read.
func NewPrimeItemView(item store.PrimeItem, ref time.Time) PrimeItemView {
	b := cadence.Count(item.PrimeTimestamps, ref)
	return PrimeItemView{
		ID:            item.ID,
		Title:         item.Title,
		Description:   item.Description,
		Category:      item.Category,
		Archived:      item.Archived,
		CreatedAt:     item.CreatedAt,
		LastPrimedAt:  item.LastPrimedAt,
		FirstPrimedAt: optionalTime(cadence.Earliest(item.PrimeTimestamps)),
		// raw length, malformed elements included
		TotalCount: len(item.PrimeTimestamps),
		TodayCount: b.Today,
		WeekCount:  b.Week,
		MonthCount: b.Month,
	}
}

type ReviewItemView struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Archived        bool       `json:"archived"`
	CreatedAt       time.Time  `json:"created_at"`
	FirstStudiedAt  *time.Time `json:"first_studied_at"`
	FirstReviewedAt *time.Time `json:"first_reviewed_at"`
	LastReviewedAt  *time.Time `json:"last_reviewed_at"`
	TotalCount      int        `json:"total_count"`
	TodayCount      int        `json:"today_count"`
	WeekCount       int        `json:"week_count"`
	MonthCount      int        `json:"month_count"`
}

func NewReviewItemView(item store.ReviewItem, ref time.Time) ReviewItemView {
	b := cadence.Count(item.ReviewTimestamps, ref)
	return ReviewItemView{
		ID:              item.ID,
		Title:           item.Title,
		Description:     item.Description,
		Category:        item.Category,
		Archived:        item.Archived,
		CreatedAt:       item.CreatedAt,
		FirstStudiedAt:  item.FirstStudiedAt,
		FirstReviewedAt: optionalTime(cadence.Earliest(item.ReviewTimestamps)),
		LastReviewedAt:  optionalTime(cadence.Latest(item.ReviewTimestamps)),
		TotalCount:      len(item.ReviewTimestamps),
		TodayCount:      b.Today,
		WeekCount:       b.Week,
		MonthCount:      b.Month,
	}
}

func optionalTime(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}
