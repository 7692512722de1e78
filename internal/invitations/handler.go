package invitations

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// BatchRequest is the body for POST /meeting-invitations/invitations/batch.
// Weight and apartment are derived from each user's unit membership.
type BatchRequest struct {
	MeetingID int64   `json:"int_meeting_id" binding:"required"`
	UserIDs   []int64 `json:"user_ids" binding:"required,min=1"`
}

// Handler handles invitation HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an invitations handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateBatch handles POST /meeting-invitations/invitations/batch.
func (h *Handler) CreateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	total, err := h.repo.CreateBatch(c.Request.Context(), req.MeetingID, req.UserIDs)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return
	}
	response.Created(c, "invitations created", gin.H{
		"meeting_id":    req.MeetingID,
		"total_invited": total,
	})
}

// RegisterAttendance handles POST /meetings/:id/register-attendance.
func (h *Handler) RegisterAttendance(c *gin.Context) {
	meetingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	inv, err := h.repo.RegisterAttendance(c.Request.Context(), meetingID, middleware.UserID(c))
	if err != nil {
		response.Error(c, apperr.FromDB(err, "no invitation for this meeting"))
		return
	}
	response.OK(c, "attendance registered", inv)
}

// RegisterLeave handles POST /meetings/:id/register-leave.
func (h *Handler) RegisterLeave(c *gin.Context) {
	meetingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	inv, err := h.repo.RegisterLeave(c.Request.Context(), meetingID, middleware.UserID(c))
	if err != nil {
		response.Error(c, apperr.FromDB(err, "no invitation for this meeting"))
		return
	}
	response.OK(c, "leave registered", inv)
}

// ListByMeeting handles GET /meetings/:id/invitations.
func (h *Handler) ListByMeeting(c *gin.Context) {
	meetingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	list, err := h.repo.ListByMeeting(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return
	}
	response.OK(c, "invitations", list)
}
