package main

import (
	"net/http"
	"slices"
	"strings"

	"tracker-api/internal/api"

	"github.com/gin-gonic/gin"
)

var (
	corsHeaders = strings.Join([]string{
		"Authorization",
		"Content-Type",
		"Accept",
		"Origin",
		"X-Requested-With",
		api.TimezoneHeader,
	}, ", ")
	corsMethods = strings.Join([]string{
		"GET",
		"POST",
		"PATCH",
		"DELETE",
		"OPTIONS",
	}, ", ")
)

// corsMiddleware reflects the request origin when it is allowed. An empty
// allow list admits every origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (len(allowed) == 0 || slices.Contains(allowed, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", corsHeaders)
			c.Header("Access-Control-Allow-Methods", corsMethods)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
