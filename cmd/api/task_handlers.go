package main

import (
	"context"
	"net/http"
	"time"

	"tracker-api/internal/api"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxTaskTitleLength  = 255
	maxCategoryLength   = 100
	defaultTaskCategory = "other"
)

type taskRequest struct {
	Title           *string             `json:"title"`
	Category        *string             `json:"category"`
	Project         optional[string]    `json:"project"`
	Notes           *string             `json:"notes"`
	PlannedStart    optional[time.Time] `json:"planned_start"`
	PlannedDuration optional[int]       `json:"planned_duration"`
	Archived        *bool               `json:"archived"`
}

func (app *app) applyTask(ctx context.Context, req taskRequest, t *store.Task) error {
	if req.Title != nil {
		title, err := requiredString("title", *req.Title, maxTaskTitleLength)
		if err != nil {
			return err
		}
		t.Title = title
	}
	if req.Category != nil {
		if err := maxLength("category", *req.Category, maxCategoryLength); err != nil {
			return err
		}
		t.Category = *req.Category
	}
	if req.Project.Set {
		if req.Project.Value != nil {
			if err := app.ownedProject(ctx, t.UserID, *req.Project.Value); err != nil {
				return err
			}
		}
		t.ProjectID = req.Project.Value
	}
	if req.Notes != nil {
		t.Notes = *req.Notes
	}
	if req.PlannedStart.Set {
		t.PlannedStart = req.PlannedStart.Value
	}
	if req.PlannedDuration.Set {
		if v := req.PlannedDuration.Value; v != nil {
			if err := nonNegative("planned_duration", *v); err != nil {
				return err
			}
		}
		t.PlannedDuration = req.PlannedDuration.Value
	}
	if req.Archived != nil {
		t.Archived = *req.Archived
	}
	return nil
}

func (app *app) listTasks(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	tasks, err := app.store.ListTasks(c.Request.Context(), userID)
	if err != nil {
		api.AbortStoreError(c, err, "list tasks")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (app *app) createTask(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if req.Title == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "title is required")
		return
	}

	task := &store.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  defaultTaskCategory,
		CreatedAt: time.Now().UTC(),
	}
	if err := app.applyTask(c.Request.Context(), req, task); err != nil {
		api.AbortStoreError(c, err, "create task")
		return
	}

	if err := app.store.CreateTask(c.Request.Context(), task); err != nil {
		api.AbortStoreError(c, err, "create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (app *app) getTask(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	task, err := app.store.GetTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (app *app) updateTask(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	task, err := app.store.GetTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch task")
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := app.applyTask(c.Request.Context(), req, task); err != nil {
		api.AbortStoreError(c, err, "update task")
		return
	}

	if err := app.store.UpdateTask(c.Request.Context(), task); err != nil {
		api.AbortStoreError(c, err, "update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// deleteTask also removes the task's time entries and unlinks its moments.
func (app *app) deleteTask(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	if err := app.store.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.AbortStoreError(c, err, "delete task")
		return
	}
	c.Status(http.StatusNoContent)
}
