package main

import (
	"net/http"
	"regexp"
	"time"

	"tracker-api/internal/api"
	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxProjectNameLength = 255
	defaultProjectColor  = "#6366f1"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Archived    *bool   `json:"archived"`
}

func (req projectRequest) apply(p *store.Project) error {
	if req.Name != nil {
		name, err := requiredString("name", *req.Name, maxProjectNameLength)
		if err != nil {
			return err
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Color != nil {
		if !hexColor.MatchString(*req.Color) {
			return &api.ValidationError{Field: "color", Message: "color must look like #rrggbb"}
		}
		p.Color = *req.Color
	}
	if req.Archived != nil {
		p.Archived = *req.Archived
	}
	return nil
}

func (app *app) listProjects(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	projects, err := app.store.ListProjects(c.Request.Context(), userID)
	if err != nil {
		api.AbortStoreError(c, err, "list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (app *app) createProject(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if req.Name == nil {
		api.AbortJSONError(c, http.StatusBadRequest, api.ErrorCodeValidation, "name is required")
		return
	}

	project := &store.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Color:     defaultProjectColor,
		CreatedAt: time.Now().UTC(),
	}
	if err := req.apply(project); err != nil {
		api.AbortStoreError(c, err, "create project")
		return
	}

	if err := app.store.CreateProject(c.Request.Context(), project); err != nil {
		api.AbortStoreError(c, err, "create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (app *app) getProject(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	project, err := app.store.GetProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch project")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (app *app) updateProject(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	project, err := app.store.GetProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		api.AbortStoreError(c, err, "fetch project")
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.AbortJSONErrorWithDetails(c, http.StatusBadRequest, api.ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := req.apply(project); err != nil {
		api.AbortStoreError(c, err, "update project")
		return
	}

	if err := app.store.UpdateProject(c.Request.Context(), project); err != nil {
		api.AbortStoreError(c, err, "update project")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (app *app) deleteProject(c *gin.Context) {
	userID, ok := api.RequireUserID(c)
	if !ok {
		return
	}

	if err := app.store.DeleteProject(c.Request.Context(), userID, c.Param("id")); err != nil {
		api.AbortStoreError(c, err, "delete project")
		return
	}
	c.Status(http.StatusNoContent)
}
