package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tracker-api/internal/api"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxEntryTaskTitleLength = 255

type timeEntryRequest struct {
	Task            *string             `json:"task"`
	TaskTitle       *string             `json:"task_title"`
	StartedAt       *time.Time          `json:"started_at"`
	EndedAt         optional[time.Time] `json:"ended_at"`
	DurationSeconds *int                `json:"duration_seconds"`
	Notes           *string             `json:"notes"`
	Breaks          json.RawMessage     `json:"breaks"`
}

// applyTimeEntry copies the request onto e. The task title follows the
// task when a new task is set without a title. A stopped entry with no
// explicit duration gets its wall-clock length.
func (app *app) applyTimeEntry(ctx context.Context, req timeEntryRequest, e *store.TimeEntry) error {
	if req.Task != nil {
		task, err := app.ownedTask(ctx, e.UserID, *req.Task)
		if err != nil {
			return err
		}
		e.TaskID = task.ID
		if req.TaskTitle == nil {
			e.TaskTitle = task.Title
		}
	}
	if req.TaskTitle != nil {
		title, err := requiredString("task_title", *req.TaskTitle, maxEntryTaskTitleLength)
		if err != nil {
			return err
		}
		e.TaskTitle = title
	}
	if req.StartedAt != nil {
		e.StartedAt = req.StartedAt.UTC()
	}
	if req.EndedAt.Set {
		e.EndedAt = nil
		if v := req.EndedAt.Value; v != nil {
			ended := v.UTC()
			e.EndedAt = &ended
		}
	}
	if e.EndedAt != nil && e.EndedAt.Before(e.StartedAt) {
		return &api.ValidationError{Field: "ended_at", Message: "ended_at must not be before started_at"}
	}
	if req.DurationSeconds != nil {
		if err := nonNegative("duration_seconds", *req.DurationSeconds); err != nil {
			return err
		}
		e.DurationSeconds = *req.DurationSeconds
	} else if req.EndedAt.Set && e.EndedAt != nil {
		e.DurationSeconds = int(e.EndedAt.Sub(e.StartedAt).Seconds())
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
	if req.Breaks != nil {
		var breaks []json.RawMessage
		if err := json.Unmarshal(req.Breaks, &breaks); err != nil {
			return &api.ValidationError{Field: "breaks", Message: "breaks must be a JSON array"}
		}
		e.Breaks = req.Breaks
		if breaks == nil {
			e.Breaks = json.RawMessage(`[]`)
		}
	}
	return nil
}

func (app *app) listTimeEntries(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	entries, err := app.store.ListTimeEntries(c.Request.Context(), userID)
	if err != nil {
		api.AbortStoreError(c, err, "list time entries")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (app *app) createTimeEntry(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	var req timeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if req.Task == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "task is required")
		return
	}
	if req.StartedAt == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "started_at is required")
		return
	}

	entry := &store.TimeEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Breaks:    json.RawMessage(`[]`),
		CreatedAt: time.Now().UTC(),
	}
	if err := app.applyTimeEntry(c.Request.Context(), req, entry); err != nil {
		api.AbortStoreError(c, err, "create time entry")
		return
	}

	if err := app.store.CreateTimeEntry(c.Request.Context(), entry); err != nil {
		api.AbortStoreError(c, err, "create time entry")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (app *app) getTimeEntry(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	entry, err := app.store.GetTimeEntry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch time entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (app *app) updateTimeEntry(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	entry, err := app.store.GetTimeEntry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch time entry")
		return
	}

	var req timeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := app.applyTimeEntry(c.Request.Context(), req, entry); err != nil {
		api.AbortStoreError(c, err, "update time entry")
		return
	}

	if err := app.store.UpdateTimeEntry(c.Request.Context(), entry); err != nil {
		api.AbortStoreError(c, err, "update time entry")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (app *app) deleteTimeEntry(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	if err := app.store.DeleteTimeEntry(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.AbortStoreError(c, err, "delete time entry")
		return
	}
	c.Status(http.StatusNoContent)
}
