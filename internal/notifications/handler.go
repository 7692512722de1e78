package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByMeeting handles GET /meetings/:id/notifications.
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
	response.OK(c, "notifications", list)
}
