package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/internal/auth"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// JWT returns a middleware that validates the bearer token and confirms the
// backing session row is active and unexpired. Auto-login tokens are not
// accepted here; they must be redeemed for a regular session first.
func JWT(jwtService *auth.JWTService, repo *auth.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid authorization header"))
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			code := apperr.CodeInvalidCredentials
			if err == auth.ErrExpiredToken {
				code = apperr.CodeTokenExpired
			}
			response.AbortError(c, apperr.Unauthenticated(code, "invalid or expired token"))
			return
		}
		if claims.Type == auth.TokenTypeAutoLogin {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "auto-login token must be redeemed first"))
			return
		}

		ok, err := repo.SessionValid(c.Request.Context(), claims.ID, time.Now())
		if err != nil {
			response.AbortError(c, apperr.Wrap(err, "session lookup failed"))
			return
		}
		if !ok {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeTokenExpired, "session expired or revoked"))
			return
		}

		user, err := repo.GetByUsername(c.Request.Context(), claims.Subject)
		if err != nil {
			response.AbortError(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "unknown user"))
			return
		}
		if !user.AllowEntry {
			response.AbortError(c, apperr.Forbidden(apperr.CodeUserNotAllowEntry, "user is not allowed to enter"))
			return
		}

		c.Set(auth.ContextUserID, user.ID)
		c.Set(auth.ContextUsername, user.Username)
		c.Set(auth.ContextRoleID, user.RoleID)
		c.Set(auth.ContextTokenJTI, claims.ID)
		c.Next()
	}
}
