package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
	"github.com/vecinal/backend/pkg/utils"
)

// ActiveMeetingResolver finds a Live meeting the user is invited to within
// their unit and, for co-owners and guests, registers attendance
// transparently. Implemented by the meetings service.
type ActiveMeetingResolver interface {
	ResolveActiveMeeting(ctx context.Context, user *models.User) (*models.Meeting, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	RoleID   int    `json:"role_id"`
}

// LoginResponse is the payload for successful login and auto-login.
type LoginResponse struct {
	AccessToken   string            `json:"access_token"`
	TokenType     string            `json:"token_type"`
	User          models.UserPublic `json:"user"`
	ActiveMeeting *models.Meeting   `json:"active_meeting,omitempty"`
	AutoLogin     bool              `json:"auto_login,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo      *Repository
	jwt       *JWTService
	autoLogin *AutoLoginService
	meetings  ActiveMeetingResolver
	logger    *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, autoLogin *AutoLoginService, meetings ActiveMeetingResolver, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, autoLogin: autoLogin, meetings: meetings, logger: logger}
}

// Register handles POST /auth/register. The endpoint is public, so it only
// grants co-owner or guest; administrator accounts are created through the
// unit admin endpoints.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	roleID := models.RoleCoOwner
	if req.RoleID != 0 {
		if req.RoleID != models.RoleCoOwner && req.RoleID != models.RoleGuest {
			response.BadRequest(c, "role_id must be co-owner or guest")
			return
		}
		roleID = req.RoleID
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), req.Username); err == nil {
		response.Error(c, apperr.Conflict(apperr.CodeUserExists, "username already registered"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to hash password"))
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Username, hash, req.FullName, req.Email, roleID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "user not created"))
		return
	}
	response.Created(c, "user registered", user.ToPublic())
}

// Login handles POST /auth/login (form-encoded username and password).
func (h *Handler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		response.BadRequest(c, "username and password are required")
		return
	}

	user, err := h.repo.GetByUsername(c.Request.Context(), username)
	if err != nil {
		response.Error(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid username or password"))
		return
	}
	valid, upgradedHash := utils.CheckPassword(password, user.PasswordHash)
	if !valid {
		response.Error(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid username or password"))
		return
	}
	if !user.AllowEntry {
		response.Error(c, apperr.Forbidden(apperr.CodeUserNotAllowEntry, "user is not allowed to enter"))
		return
	}

	token, jti, expiresAt, err := h.jwt.GenerateSession(user.Username)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to sign token"))
		return
	}
	session := &models.Session{
		UserID:     user.ID,
		TokenJTI:   jti,
		DeviceInfo: c.Request.UserAgent(),
		IP:         c.ClientIP(),
		ExpiresAt:  expiresAt,
	}
	if err := h.repo.CompleteLogin(c.Request.Context(), session, upgradedHash); err != nil {
		response.Error(c, apperr.FromDB(err, "session not created"))
		return
	}

	resp := LoginResponse{AccessToken: token, TokenType: "bearer", User: user.ToPublic()}
	resp.ActiveMeeting = h.resolveActiveMeeting(c.Request.Context(), user)
	response.OK(c, "login successful", resp)
}

// Logout handles POST /auth/logout: deactivates the current session.
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString(ContextTokenJTI)
	if jti == "" {
		response.Error(c, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "missing session"))
		return
	}
	if err := h.repo.DeactivateSession(c.Request.Context(), jti); err != nil {
		response.Error(c, apperr.FromDB(err, "session not found"))
		return
	}
	response.OK(c, "logged out", nil)
}

// RedeemAutoLogin handles GET /auto-login/:token.
func (h *Handler) RedeemAutoLogin(c *gin.Context) {
	tokenString := c.Param("token")
	user, sessionToken, err := h.autoLogin.Redeem(c.Request.Context(), tokenString, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := LoginResponse{AccessToken: sessionToken, TokenType: "bearer", User: user.ToPublic(), AutoLogin: true}
	resp.ActiveMeeting = h.resolveActiveMeeting(c.Request.Context(), user)
	response.OK(c, "auto-login successful", resp)
}

// IssueAutoLogin handles POST /users/:id/auto-login (admin only).
func (h *Handler) IssueAutoLogin(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	token, err := h.autoLogin.Issue(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "auto-login token issued", gin.H{"user_id": userID, "token": token})
}

// resolveActiveMeeting is best-effort: a failure never blocks the login.
func (h *Handler) resolveActiveMeeting(ctx context.Context, user *models.User) *models.Meeting {
	if h.meetings == nil {
		return nil
	}
	meeting, err := h.meetings.ResolveActiveMeeting(ctx, user)
	if err != nil && err != pgx.ErrNoRows {
		h.logger.Warn("active meeting lookup failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	return meeting
}
