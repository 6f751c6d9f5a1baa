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
	maxMomentDescriptionLength = 10000
	maxMomentTaskTitleLength   = 1000
	defaultMomentCategory      = "general"
)

type momentRequest struct {
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Timestamp   *time.Time       `json:"timestamp"`
	Task        optional[string] `json:"task"`
	TaskTitle   *string          `json:"task_title"`
	IsMilestone *bool            `json:"is_milestone"`
}

func (app *app) applyMoment(ctx context.Context, req momentRequest, m *store.Moment) error {
	if req.Description != nil {
		description, err := requiredString("description", *req.Description, maxMomentDescriptionLength)
		if err != nil {
			return err
		}
		m.Description = description
	}
	if req.Category != nil {
		if err := maxLength("category", *req.Category, maxCategoryLength); err != nil {
			return err
		}
		m.Category = *req.Category
	}
	if req.Timestamp != nil {
		m.Timestamp = req.Timestamp.UTC()
	}
	if req.Task.Set {
		m.TaskID = nil
		if id := req.Task.Value; id != nil {
			task, err := app.ownedTask(ctx, m.UserID, *id)
			if err != nil {
				return err
			}
			m.TaskID = &task.ID
			if req.TaskTitle == nil && m.TaskTitle == "" {
				m.TaskTitle = task.Title
			}
		}
	}
	if req.TaskTitle != nil {
		if err := maxLength("task_title", *req.TaskTitle, maxMomentTaskTitleLength); err != nil {
			return err
		}
		m.TaskTitle = *req.TaskTitle
	}
	if req.IsMilestone != nil {
		m.IsMilestone = *req.IsMilestone
	}
	return nil
}

func (app *app) listMoments(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	moments, err := app.store.ListMoments(c.Request.Context(), userID)
	if err != nil {
		api.AbortStoreError(c, err, "list moments")
		return
	}
	c.JSON(http.StatusOK, moments)
}

func (app *app) createMoment(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	var req momentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if req.Description == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "description is required")
		return
	}

	now := time.Now().UTC()
	moment := &store.Moment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  defaultMomentCategory,
		Timestamp: now,
		CreatedAt: now,
	}
	if err := app.applyMoment(c.Request.Context(), req, moment); err != nil {
		api.AbortStoreError(c, err, "create moment")
		return
	}

	if err := app.store.CreateMoment(c.Request.Context(), moment); err != nil {
		api.AbortStoreError(c, err, "create moment")
		return
	}
	c.JSON(http.StatusCreated, moment)
}

func (app *app) getMoment(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	moment, err := app.store.GetMoment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch moment")
		return
	}
	c.JSON(http.StatusOK, moment)
}

func (app *app) updateMoment(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	moment, err := app.store.GetMoment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch moment")
		return
	}

	var req momentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := app.applyMoment(c.Request.Context(), req, moment); err != nil {
		api.AbortStoreError(c, err, "update moment")
		return
	}

	if err := app.store.UpdateMoment(c.Request.Context(), moment); err != nil {
		api.AbortStoreError(c, err, "update moment")
		return
	}
	c.JSON(http.StatusOK, moment)
}

func (app *app) deleteMoment(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	if err := app.store.DeleteMoment(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.AbortStoreError(c, err, "delete moment")
		return
	}
	c.Status(http.StatusNoContent)
}
