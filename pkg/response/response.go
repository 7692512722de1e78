// Package response renders the standard API envelopes.
package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/pkg/apperr"
)

// Success is the envelope for successful responses.
type Success struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Meta       interface{} `json:"meta,omitempty"`
}

// Failure is the envelope for error responses.
type Failure struct {
	Success    bool                   `json:"success"`
	StatusCode int                    `json:"status_code"`
	Message    string                 `json:"message"`
	ErrorCode  string                 `json:"error_code"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// OK sends a 200 envelope with data.
func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Success{Success: true, StatusCode: http.StatusOK, Message: message, Data: data})
}

// Created sends a 201 envelope with data.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Success{Success: true, StatusCode: http.StatusCreated, Message: message, Data: data})
}

// OKWithMeta sends a 200 envelope with data and meta (e.g. pagination).
func OKWithMeta(c *gin.Context, message string, data, meta interface{}) {
	c.JSON(http.StatusOK, Success{Success: true, StatusCode: http.StatusOK, Message: message, Data: data, Meta: meta})
}

// Error maps a typed error to the error envelope. Unknown errors become 500.
func Error(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(err, "internal server error")
	}
	status := StatusOf(e.Kind)
	if e.Kind == apperr.KindRateLimited && e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	c.JSON(status, Failure{
		Success:    false,
		StatusCode: status,
		Message:    e.Message,
		ErrorCode:  e.Code,
		Details:    e.Details,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// AbortError is Error plus gin abort, for middleware.
func AbortError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// StatusOf returns the HTTP status for an error kind.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindBusiness:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindGone:
		return http.StatusGone
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest is a shorthand for validation failures in handlers.
func BadRequest(c *gin.Context, message string) {
	Error(c, apperr.Validation(message))
}
