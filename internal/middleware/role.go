package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/internal/auth"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given role ids.
func RequireRole(roleIDs ...int) gin.HandlerFunc {
	allowed := make(map[int]struct{})
	for _, r := range roleIDs {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(auth.ContextRoleID)
		if !ok {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "missing user context"))
			return
		}
		roleID, _ := roleVal.(int)
		if _, ok := allowed[roleID]; !ok {
			response.AbortError(c, apperr.Forbidden(apperr.CodePermissionDenied, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id from the gin context.
func UserID(c *gin.Context) int64 {
	return c.MustGet(auth.ContextUserID).(int64)
}

// RoleID returns the authenticated role id from the gin context.
func RoleID(c *gin.Context) int {
	return c.MustGet(auth.ContextRoleID).(int)
}
