package auth

// Keys under which the middleware stores the authenticated principal in the
// gin context.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRoleID   = "role_id"
	ContextTokenJTI = "token_jti"
)
