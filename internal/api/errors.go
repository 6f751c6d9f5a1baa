package api

import (
	"errors"
	"log"
	"net/http"

	"tracker-api/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	ErrorCodeValidation   = "validation_error"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeConflict     = "conflict"
	ErrorCodeInternal     = "internal_error"
)

type ErrorDetails struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ValidationError rejects a request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func JSONError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func JSONErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	if details == nil {
		JSONError(c, status, code, message)
		return
	}
	switch v := details.(type) {
	case []ErrorDetails:
		if len(v) == 0 {
			JSONError(c, status, code, message)
			return
		}
	}
	c.JSON(status, gin.H{
		"error": ErrorResponse{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func AbortJSONError(c *gin.Context, status int, code, message string) {
	JSONError(c, status, code, message)
	c.Abort()
}

func AbortJSONErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	JSONErrorWithDetails(c, status, code, message, details)
	c.Abort()
}

// AbortStoreError maps errors from the store and services onto the JSON
// error envelope. what names the failed operation, e.g. "update task".
func AbortStoreError(c *gin.Context, err error, what string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		AbortJSONErrorWithDetails(c, http.StatusBadRequest, ErrorCodeValidation, verr.Message,
			[]ErrorDetails{{Field: verr.Field, Message: verr.Message}})
	case errors.Is(err, store.ErrNotFound):
		AbortJSONError(c, http.StatusNotFound, ErrorCodeNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		AbortJSONError(c, http.StatusConflict, ErrorCodeConflict, "too many concurrent updates, retry")
	default:
		log.Printf("%s: %v", what, err)
		AbortJSONError(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to "+what)
	}
}
