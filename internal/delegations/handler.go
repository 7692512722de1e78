package delegations

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// Notifier records delegation changes in the notification log. Best-effort;
// implemented by the notifications service.
type Notifier interface {
	NotifyDelegationCreated(ctx context.Context, meetingID, delegatorID, delegateID int64)
	NotifyDelegationRevoked(ctx context.Context, meetingID, delegatorID, delegateID int64)
}

// CreateRequest is the body for POST /delegations.
type CreateRequest struct {
	MeetingID    int64   `json:"meeting_id" binding:"required"`
	DelegatorIDs []int64 `json:"delegator_ids" binding:"required,min=1"`
	DelegateID   int64   `json:"delegate_id" binding:"required"`
}

// Handler handles delegation HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier Notifier
}

// NewHandler creates a delegations handler.
func NewHandler(repo *Repository, notifier Notifier) *Handler {
	return &Handler{repo: repo, notifier: notifier}
}

func actorFrom(c *gin.Context) Actor {
	return Actor{UserID: middleware.UserID(c), RoleID: middleware.RoleID(c)}
}

// Create handles POST /delegations.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	logs, err := h.repo.Create(c.Request.Context(), req.MeetingID, req.DelegatorIDs, req.DelegateID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.notifier != nil {
		for _, entry := range logs {
			h.notifier.NotifyDelegationCreated(c.Request.Context(), entry.MeetingID, entry.DelegatorID, entry.DelegateID)
		}
	}
	response.Created(c, "delegation created", logs)
}

// Revoke handles DELETE /delegations/:meetingId/:delegatorId.
func (h *Handler) Revoke(c *gin.Context) {
	meetingID, err := strconv.ParseInt(c.Param("meetingId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	delegatorID, err := strconv.ParseInt(c.Param("delegatorId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid delegator id")
		return
	}
	entry, err := h.repo.Revoke(c.Request.Context(), meetingID, delegatorID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyDelegationRevoked(c.Request.Context(), entry.MeetingID, entry.DelegatorID, entry.DelegateID)
	}
	response.OK(c, "delegation revoked", entry)
}

// History handles GET /meetings/:id/delegation-history.
func (h *Handler) History(c *gin.Context) {
	meetingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	list, err := h.repo.History(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return
	}
	response.OK(c, "delegation history", list)
}
