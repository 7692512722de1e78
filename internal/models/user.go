package models

import (
	"time"
)

// Role ids. The set is fixed; roles are not a table.
const (
	RoleSuperAdmin = 1
	RoleUnitAdmin  = 2
	RoleCoOwner    = 3
	RoleGuest      = 4
)

// RoleName returns the display name for a role id.
func RoleName(roleID int) string {
	switch roleID {
	case RoleSuperAdmin:
		return "super_admin"
	case RoleUnitAdmin:
		return "unit_admin"
	case RoleCoOwner:
		return "co_owner"
	case RoleGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// User represents a platform user. Username is stored lowercased and unique.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	RoleID       int       `json:"role_id"`
	AllowEntry   bool      `json:"allow_entry"`
	DataRef      *int64    `json:"data_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Role:     RoleName(u.RoleID),
		Name:     u.FullName,
		Email:    u.Email,
	}
}

// Session is one active bearer credential, keyed by the token jti.
type Session struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TokenJTI   string    `json:"token_jti"`
	DeviceInfo string    `json:"device_info,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"active"`
}

// AutoLoginToken is the single-holder credential record. At most one row per
// user; issuing a new token overwrites the previous row.
type AutoLoginToken struct {
	UserID    int64     `json:"user_id"`
	TokenID   string    `json:"token_id"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
