package api

import (
	"net/http"
	"strings"
	"time"

	"tracker-api/internal/feed"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
)

// TimezoneHeader carries the client's IANA zone for day-window endpoints.
const TimezoneHeader = "X-Timezone"

type Handlers struct {
	primes  *PrimeService
	reviews *ReviewService
	feed    feed.Fetcher
	now     func() time.Time
}

func NewHandlers(primes *PrimeService, reviews *ReviewService, fetcher feed.Fetcher) *Handlers {
	return &Handlers{
		primes:  primes,
		reviews: reviews,
		feed:    fetcher,
		now:     time.Now,
	}
}

func (h *Handlers) ListPrimeItems(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	filter := store.PrimeItemFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	if truthy(c.Query("include_timestamps")) {
		items, err := h.primes.ListRecords(c.Request.Context(), userID, filter)
		if err != nil {
			AbortStoreError(c, err, "list prime items")
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	views, err := h.primes.ListSummaries(c.Request.Context(), userID, filter)
	if err != nil {
		AbortStoreError(c, err, "list prime items")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handlers) CreatePrimeItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	var in PrimeItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortJSONError(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body")
		return
	}
	item, err := h.primes.Create(c.Request.Context(), userID, in)
	if err != nil {
		AbortStoreError(c, err, "create prime item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handlers) GetPrimeItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	item, err := h.primes.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortStoreError(c, err, "get prime item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handlers) UpdatePrimeItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	var in PrimeItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortJSONError(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body")
		return
	}
	item, err := h.primes.Update(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		AbortStoreError(c, err, "update prime item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handlers) DeletePrimeItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	if err := h.primes.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		AbortStoreError(c, err, "delete prime item")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) LogPrime(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	view, err := h.primes.LogPrime(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortStoreError(c, err, "log prime")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) PrimeCategories(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	b, err := h.primes.CategoriesJSON(c.Request.Context(), userID)
	if err != nil {
		AbortStoreError(c, err, "list categories")
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

func (h *Handlers) ListReviewItems(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	items, err := h.reviews.List(c.Request.Context(), userID)
	if err != nil {
		AbortStoreError(c, err, "list review items")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handlers) CreateReviewItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	var in ReviewItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortJSONError(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body")
		return
	}
	item, err := h.reviews.Create(c.Request.Context(), userID, in)
	if err != nil {
		AbortStoreError(c, err, "create review item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handlers) GetReviewItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	item, err := h.reviews.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortStoreError(c, err, "get review item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handlers) UpdateReviewItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	var in ReviewItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortJSONError(c, http.StatusBadRequest, ErrorCodeValidation, "invalid JSON body")
		return
	}
	item, err := h.reviews.Update(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		AbortStoreError(c, err, "update review item")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handlers) DeleteReviewItem(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		AbortStoreError(c, err, "delete review item")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) LogReview(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	view, err := h.reviews.LogReview(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		AbortStoreError(c, err, "log review")
		return
	}
	c.JSON(http.StatusOK, view)
}

// TodayEntries returns the merged feed for the client's current local day.
func (h *Handlers) TodayEntries(c *gin.Context) {
	userID, ok := RequireUserID(c)
	if !ok {
		return
	}
	entries, err := feed.Today(c.Request.Context(), h.feed, userID, c.GetHeader(TimezoneHeader), h.now())
	if err != nil {
		AbortStoreError(c, err, "load today entries")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RequireUserID reads the user set by the auth middleware and aborts the
// request when it is missing.
func RequireUserID(c *gin.Context) (string, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "missing user context")
	}
	return userID, ok
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
