package main

import (
	"net/http"
	"time"

	"tracker-api/internal/api"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxHabitNameLength = 200

type habitRequest struct {
	Name          *string `json:"name"`
	DailyTarget   *int    `json:"daily_target"`
	WeeklyTarget  *int    `json:"weekly_target"`
	MonthlyTarget *int    `json:"monthly_target"`
	DailyCount    *int    `json:"daily_count"`
	WeeklyCount   *int    `json:"weekly_count"`
	MonthlyCount  *int    `json:"monthly_count"`
	IsActive      *bool   `json:"is_active"`
}

func (req habitRequest) apply(h *store.Habit) error {
	if req.Name != nil {
		name, err := requiredString("name", *req.Name, maxHabitNameLength)
		if err != nil {
			return err
		}
		h.Name = name
	}

	counters := []struct {
		field string
		src   *int
		dst   *int
	}{
		{"daily_target", req.DailyTarget, &h.DailyTarget},
		{"weekly_target", req.WeeklyTarget, &h.WeeklyTarget},
		{"monthly_target", req.MonthlyTarget, &h.MonthlyTarget},
		{"daily_count", req.DailyCount, &h.DailyCount},
		{"weekly_count", req.WeeklyCount, &h.WeeklyCount},
		{"monthly_count", req.MonthlyCount, &h.MonthlyCount},
	}
	for _, f := range counters {
		if f.src == nil {
			continue
		}
		if err := nonNegative(f.field, *f.src); err != nil {
			return err
		}
		*f.dst = *f.src
	}

	if req.IsActive != nil {
		h.IsActive = *req.IsActive
	}
	return nil
}

func (app *app) listHabits(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	habits, err := app.store.ListHabits(c.Request.Context(), userID)
	if err != nil {
		api.AbortStoreError(c, err, "list habits")
		return
	}
	c.JSON(http.StatusOK, habits)
}

func (app *app) createHabit(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if req.Name == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "name is required")
		return
	}

	habit := &store.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := req.apply(habit); err != nil {
		api.AbortStoreError(c, err, "create habit")
		return
	}

	if err := app.store.CreateHabit(c.Request.Context(), habit); err != nil {
		api.AbortStoreError(c, err, "create habit")
		return
	}
	c.JSON(http.StatusCreated, habit)
}

func (app *app) getHabit(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	habit, err := app.store.GetHabit(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch habit")
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (app *app) updateHabit(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	habit, err := app.store.GetHabit(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch habit")
		return
	}

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := req.apply(habit); err != nil {
		api.AbortStoreError(c, err, "update habit")
		return
	}

	if err := app.store.UpdateHabit(c.Request.Context(), habit); err != nil {
		api.AbortStoreError(c, err, "update habit")
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (app *app) deleteHabit(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	if err := app.store.DeleteHabit(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.AbortStoreError(c, err, "delete habit")
		return
	}
	c.Status(http.StatusNoContent)
}
