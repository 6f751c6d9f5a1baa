package main

import (
	"context"
	"net/http"
	"time"

	"tracker-api/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func (app *app) routes() http.Handler {
	// timestamp logs keep integer precision when bound from request bodies
	binding.EnableDecoderUseNumber = true

	g := gin.Default()
	g.Use(corsMiddleware(app.config.Server.AllowedOrigins))

	health := g.Group("/health")
	{
		health.GET("", healthHandler)
	}

	t := app.config.Server.HandlerTimeout
	h := app.handlers

	authed := g.Group("/api", app.authMiddleware()...)
	{
		authed.GET("/projects", withTimeout(t, app.listProjects))
		authed.POST("/projects", withTimeout(t, app.createProject))
		authed.GET("/projects/:id", withTimeout(t, app.getProject))
		authed.PATCH("/projects/:id", withTimeout(t, app.updateProject))
		authed.DELETE("/projects/:id", withTimeout(t, app.deleteProject))

		authed.GET("/tasks", withTimeout(t, app.listTasks))
		authed.POST("/tasks", withTimeout(t, app.createTask))
		authed.GET("/tasks/:id", withTimeout(t, app.getTask))
		authed.PATCH("/tasks/:id", withTimeout(t, app.updateTask))
		authed.DELETE("/tasks/:id", withTimeout(t, app.deleteTask))

		authed.GET("/time-entries", withTimeout(t, app.listTimeEntries))
		authed.POST("/time-entries", withTimeout(t, app.createTimeEntry))
		authed.GET("/time-entries/:id", withTimeout(t, app.getTimeEntry))
		authed.PATCH("/time-entries/:id", withTimeout(t, app.updateTimeEntry))
		authed.DELETE("/time-entries/:id", withTimeout(t, app.deleteTimeEntry))

		authed.GET("/moments", withTimeout(t, app.listMoments))
		authed.POST("/moments", withTimeout(t, app.createMoment))
		authed.GET("/moments/:id", withTimeout(t, app.getMoment))
		authed.PATCH("/moments/:id", withTimeout(t, app.updateMoment))
		authed.DELETE("/moments/:id", withTimeout(t, app.deleteMoment))

		authed.GET("/habits", withTimeout(t, app.listHabits))
		authed.POST("/habits", withTimeout(t, app.createHabit))
		authed.GET("/habits/:id", withTimeout(t, app.getHabit))
		authed.PATCH("/habits/:id", withTimeout(t, app.updateHabit))
		authed.DELETE("/habits/:id", withTimeout(t, app.deleteHabit))

		authed.GET("/prime-items", withTimeout(t, h.ListPrimeItems))
		authed.POST("/prime-items", withTimeout(t, h.CreatePrimeItem))
		authed.GET("/prime-items/categories", withTimeout(t, h.PrimeCategories))
		authed.GET("/prime-items/:id", withTimeout(t, h.GetPrimeItem))
		authed.PATCH("/prime-items/:id", withTimeout(t, h.UpdatePrimeItem))
		authed.DELETE("/prime-items/:id", withTimeout(t, h.DeletePrimeItem))
		authed.POST("/prime-items/:id/log_prime", withTimeout(t, h.LogPrime))

		authed.GET("/review-items", withTimeout(t, h.ListReviewItems))
		authed.POST("/review-items", withTimeout(t, h.CreateReviewItem))
		authed.GET("/review-items/:id", withTimeout(t, h.GetReviewItem))
		authed.PATCH("/review-items/:id", withTimeout(t, h.UpdateReviewItem))
		authed.DELETE("/review-items/:id", withTimeout(t, h.DeleteReviewItem))
		authed.POST("/review-items/:id/log_review", withTimeout(t, h.LogReview))

		authed.GET("/today-entries", withTimeout(t, h.TodayEntries))
	}

	return g
}

func (app *app) authMiddleware() []gin.HandlerFunc {
	if app.config.Clerk.SecretKey != "" {
		return []gin.HandlerFunc{api.ClerkSession(), api.RequireAuth(app.store)}
	}
	return []gin.HandlerFunc{api.RequireDevUser(app.store, app.config.Clerk.DevUserEmail)}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func withTimeout(d time.Duration, fn gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		fn(c)
	}
}
