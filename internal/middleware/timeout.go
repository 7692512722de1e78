package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout attaches a deadline to every request context. Handlers observe it
// through c.Request.Context(); on expiry the database aborts the in-flight
// transaction and the typed Timeout error surfaces.
func Timeout(seconds int) gin.HandlerFunc {
	d := time.Duration(seconds) * time.Second
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
