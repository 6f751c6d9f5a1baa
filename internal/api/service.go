package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tracker-api/internal/cadence"
	"tracker-api/internal/store"

	"github.com/google/uuid"
)

const (
	maxTitleLen    = 1000
	maxCategoryLen = 100
)

type PrimeStore interface {
	CreatePrimeItem(ctx context.Context, item *store.PrimeItem) error
	GetPrimeItem(ctx context.Context, userID, id string) (*store.PrimeItem, error)
	ListPrimeItems(ctx context.Context, userID string, filter store.PrimeItemFilter) ([]store.PrimeItem, error)
	ListPrimeCategories(ctx context.Context, userID string) ([]store.CategoryCount, error)
	UpdatePrimeItem(ctx context.Context, item *store.PrimeItem) error
	UpdatePrimeTimestamps(ctx context.Context, userID, id string, fn func(*store.PrimeItem) error) (*store.PrimeItem, error)
	DeletePrimeItem(ctx context.Context, userID, id string) error
}

type ReviewStore interface {
	CreateReviewItem(ctx context.Context, item *store.ReviewItem) error
	GetReviewItem(ctx context.Context, userID, id string) (*store.ReviewItem, error)
	ListReviewItems(ctx context.Context, userID string) ([]store.ReviewItem, error)
	UpdateReviewItem(ctx context.Context, item *store.ReviewItem) error
	UpdateReviewTimestamps(ctx context.Context, userID, id string, fn func(*store.ReviewItem) error) (*store.ReviewItem, error)
	DeleteReviewItem(ctx context.Context, userID, id string) error
}

// PrimeItemInput is the writable part of a prime item. last_primed_at is
// not accepted from clients; it always follows the timestamp log.
type PrimeItemInput struct {
	Title           *string      `json:"title"`
	Description     *string      `json:"description"`
	Category        *string      `json:"category"`
	Archived        *bool        `json:"archived"`
	PrimeTimestamps *cadence.Log `json:"prime_timestamps"`
}

type PrimeService struct {
	Store      PrimeStore
	Categories *Cache
	Now        func() time.Time
}

func NewPrimeService(s PrimeStore, categories *Cache) *PrimeService {
	return &PrimeService{Store: s, Categories: categories, Now: time.Now}
}

func (s *PrimeService) Create(ctx context.Context, userID string, in PrimeItemInput) (*store.PrimeItem, error) {
	if in.Title == nil {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	item := &store.PrimeItem{
		ID:              uuid.NewString(),
		UserID:          userID,
		PrimeTimestamps: cadence.Log{},
		CreatedAt:       s.Now(),
	}
	if err := applyPrimeMetadata(item, in); err != nil {
		return nil, err
	}
	if in.PrimeTimestamps != nil {
		item.PrimeTimestamps = *in.PrimeTimestamps
	}
	item.LastPrimedAt = optionalTime(cadence.Latest(item.PrimeTimestamps))

	if err := s.Store.CreatePrimeItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create prime item: %w", err)
	}
	s.Categories.Invalidate(userID)
	return item, nil
}

func (s *PrimeService) Get(ctx context.Context, userID, id string) (*store.PrimeItem, error) {
	return s.Store.GetPrimeItem(ctx, userID, id)
}

// Update applies a partial update. A replaced timestamp log goes through the
// compare-and-swap path so it cannot clobber a concurrent append silently.
func (s *PrimeService) Update(ctx context.Context, userID, id string, in PrimeItemInput) (*store.PrimeItem, error) {
	item, err := s.Store.GetPrimeItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil || in.Description != nil || in.Category != nil || in.Archived != nil {
		if err := applyPrimeMetadata(item, in); err != nil {
			return nil, err
		}
		if err := s.Store.UpdatePrimeItem(ctx, item); err != nil {
			return nil, err
		}
	}
	if in.PrimeTimestamps != nil {
		replacement := *in.PrimeTimestamps
		item, err = s.Store.UpdatePrimeTimestamps(ctx, userID, id, func(p *store.PrimeItem) error {
			p.PrimeTimestamps = replacement
			p.LastPrimedAt = optionalTime(cadence.Latest(replacement))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	s.Categories.Invalidate(userID)
	return item, nil
}

func (s *PrimeService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Store.DeletePrimeItem(ctx, userID, id); err != nil {
		return err
	}
	s.Categories.Invalidate(userID)
	return nil
}

// LogPrime records one prime event at the current instant and returns the
// refreshed summary.
func (s *PrimeService) LogPrime(ctx context.Context, userID, id string) (PrimeItemView, error) {
	now := s.Now()
	item, err := s.Store.UpdatePrimeTimestamps(ctx, userID, id, func(p *store.PrimeItem) error {
		log, at := cadence.Append(p.PrimeTimestamps, now)
		p.PrimeTimestamps = log
		p.LastPrimedAt = &at
		return nil
	})
	if err != nil {
		return PrimeItemView{}, err
	}
	return NewPrimeItemView(*item, now), nil
}

func (s *PrimeService) ListSummaries(ctx context.Context, userID string, filter store.PrimeItemFilter) ([]PrimeItemView, error) {
	items, err := s.Store.ListPrimeItems(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	views := make([]PrimeItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewPrimeItemView(item, now))
	}
	return views, nil
}

func (s *PrimeService) ListRecords(ctx context.Context, userID string, filter store.PrimeItemFilter) ([]store.PrimeItem, error) {
	return s.Store.ListPrimeItems(ctx, userID, filter)
}

// CategoriesJSON returns the rendered category counts for the user, served
// from the cache while fresh.
func (s *PrimeService) CategoriesJSON(ctx context.Context, userID string) ([]byte, error) {
	if b, ok := s.Categories.Get(userID); ok {
		return b, nil
	}
	counts, err := s.Store.ListPrimeCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []store.CategoryCount{}
	}
	b, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("marshal categories: %w", err)
	}
	s.Categories.Set(userID, b)
	return b, nil
}

func applyPrimeMetadata(item *store.PrimeItem, in PrimeItemInput) error {
	if in.Title != nil {
		title, err := cleanTitle(*in.Title)
		if err != nil {
			return err
		}
		item.Title = title
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		category, err := cleanCategory(*in.Category)
		if err != nil {
			return err
		}
		item.Category = category
	}
	if in.Archived != nil {
		item.Archived = *in.Archived
	}
	return nil
}

type ReviewItemInput struct {
	Title            *string      `json:"title"`
	Description      *string      `json:"description"`
	Category         *string      `json:"category"`
	Archived         *bool        `json:"archived"`
	ReviewTimestamps *cadence.Log `json:"review_timestamps"`
	FirstStudiedAt   *time.Time   `json:"first_studied_at"`
}

type ReviewService struct {
	Store ReviewStore
	Now   func() time.Time
}

func NewReviewService(s ReviewStore) *ReviewService {
	return &ReviewService{Store: s, Now: time.Now}
}

func (s *ReviewService) Create(ctx context.Context, userID string, in ReviewItemInput) (*store.ReviewItem, error) {
	if in.Title == nil {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	item := &store.ReviewItem{
		ID:               uuid.NewString(),
		UserID:           userID,
		ReviewTimestamps: cadence.Log{},
		FirstStudiedAt:   in.FirstStudiedAt,
		CreatedAt:        s.Now(),
	}
	if err := applyReviewMetadata(item, in); err != nil {
		return nil, err
	}
	if in.ReviewTimestamps != nil {
		item.ReviewTimestamps = *in.ReviewTimestamps
	}
	if err := s.Store.CreateReviewItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create review item: %w", err)
	}
	return item, nil
}

func (s *ReviewService) Get(ctx context.Context, userID, id string) (*store.ReviewItem, error) {
	return s.Store.GetReviewItem(ctx, userID, id)
}

func (s *ReviewService) List(ctx context.Context, userID string) ([]store.ReviewItem, error) {
	return s.Store.ListReviewItems(ctx, userID)
}

func (s *ReviewService) Update(ctx context.Context, userID, id string, in ReviewItemInput) (*store.ReviewItem, error) {
	item, err := s.Store.GetReviewItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil || in.Description != nil || in.Category != nil || in.Archived != nil {
		if err := applyReviewMetadata(item, in); err != nil {
			return nil, err
		}
		if err := s.Store.UpdateReviewItem(ctx, item); err != nil {
			return nil, err
		}
	}
	if in.ReviewTimestamps != nil || in.FirstStudiedAt != nil {
		item, err = s.Store.UpdateReviewTimestamps(ctx, userID, id, func(r *store.ReviewItem) error {
			if in.ReviewTimestamps != nil {
				r.ReviewTimestamps = *in.ReviewTimestamps
			}
			if in.FirstStudiedAt != nil {
				r.FirstStudiedAt = in.FirstStudiedAt
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, id string) error {
	return s.Store.DeleteReviewItem(ctx, userID, id)
}

// LogReview appends the current instant to the review log. The first review
// also marks the item as studied.
func (s *ReviewService) LogReview(ctx context.Context, userID, id string) (ReviewItemView, error) {
	now := s.Now()
	item, err := s.Store.UpdateReviewTimestamps(ctx, userID, id, func(r *store.ReviewItem) error {
		log, at := cadence.Append(r.ReviewTimestamps, now)
		r.ReviewTimestamps = log
		if r.FirstStudiedAt == nil {
			r.FirstStudiedAt = &at
		}
		return nil
	})
	if err != nil {
		return ReviewItemView{}, err
	}
	return NewReviewItemView(*item, now), nil
}

func applyReviewMetadata(item *store.ReviewItem, in ReviewItemInput) error {
	if in.Title != nil {
		title, err := cleanTitle(*in.Title)
		if err != nil {
			return err
		}
		item.Title = title
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		category, err := cleanCategory(*in.Category)
		if err != nil {
			return err
		}
		item.Category = category
	}
	if in.Archived != nil {
		item.Archived = *in.Archived
	}
	return nil
}

func cleanTitle(s string) (string, error) {
	title := strings.TrimSpace(s)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen)}
	}
	return title, nil
}

func cleanCategory(s string) (string, error) {
	category := strings.TrimSpace(s)
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return "", &ValidationError{Field: "category", Message: fmt.Sprintf("category must be at most %d characters", maxCategoryLen)}
	}
	return category, nil
}
