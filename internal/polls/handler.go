package polls

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/meetings"
	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// CreateRequest is the body for POST /polls.
type CreateRequest struct {
	MeetingID        int64    `json:"meeting_id" binding:"required"`
	Title            string   `json:"title" binding:"required"`
	Description      string   `json:"description"`
	Type             string   `json:"type" binding:"required,oneof=single multiple text numeric"`
	Anonymous        bool     `json:"anonymous"`
	RequiresQuorum   bool     `json:"requires_quorum"`
	MinQuorumPct     *float64 `json:"min_quorum_pct"`
	AllowsAbstention *bool    `json:"allows_abstention"`
	MaxSelections    int      `json:"max_selections"`
	DurationMin      *int     `json:"duration_min"`
	Options          []string `json:"options"`
}

// VoteRequest is the body for POST /polls/:id/responses.
type VoteRequest struct {
	OptionID       *int64           `json:"option_id"`
	ResponseText   *string          `json:"response_text"`
	ResponseNumber *decimal.Decimal `json:"response_number"`
	IsAbstention   bool             `json:"is_abstention"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	repo     *Repository
	service  *Service
	meetings *meetings.Repository
}

// NewHandler creates a polls handler.
func NewHandler(repo *Repository, service *Service, mt *meetings.Repository) *Handler {
	return &Handler{repo: repo, service: service, meetings: mt}
}

func (h *Handler) requireMeetingAdmin(c *gin.Context, meetingID int64) bool {
	m, err := h.meetings.GetByID(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return false
	}
	if m.IsOrganizerOrLeader(middleware.UserID(c)) || middleware.RoleID(c) == models.RoleSuperAdmin {
		return true
	}
	response.Error(c, apperr.Forbidden(apperr.CodePermissionDenied, "only the organizer or leader may do this"))
	return false
}

// Create handles POST /polls.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !h.requireMeetingAdmin(c, req.MeetingID) {
		return
	}

	p := &models.Poll{
		MeetingID:        req.MeetingID,
		Code:             NewPollCode(req.MeetingID),
		Title:            req.Title,
		Description:      req.Description,
		Type:             req.Type,
		Anonymous:        req.Anonymous,
		RequiresQuorum:   req.RequiresQuorum,
		AllowsAbstention: true,
		MaxSelections:    req.MaxSelections,
		DurationMin:      req.DurationMin,
	}
	actorID := middleware.UserID(c)
	p.CreatedBy = &actorID
	if req.MinQuorumPct != nil {
		p.MinQuorumPct = decimal.NewFromFloat(*req.MinQuorumPct)
	}
	if req.AllowsAbstention != nil {
		p.AllowsAbstention = *req.AllowsAbstention
	}
	if p.MaxSelections == 0 {
		p.MaxSelections = 1
	}
	if p.IsChoice() && len(req.Options) < 2 {
		response.BadRequest(c, "choice polls require at least two options")
		return
	}

	if err := h.repo.Create(c.Request.Context(), p, req.Options); err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return
	}
	response.Created(c, "poll created", p)
}

// GetByID handles GET /polls/:id, including options for choice polls.
func (h *Handler) GetByID(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	payload := gin.H{"poll": p}
	if p.IsChoice() {
		options, err := h.repo.Options(c.Request.Context(), p.ID)
		if err != nil {
			response.Error(c, apperr.FromDB(err, "poll not found"))
			return
		}
		payload["options"] = options
	}
	response.OK(c, "poll", payload)
}

// ListByMeeting handles GET /meetings/:id/polls.
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
	response.OK(c, "polls", list)
}

// Start handles POST /polls/:id/start.
func (h *Handler) Start(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	if !h.requireMeetingAdmin(c, p.MeetingID) {
		return
	}
	started, err := h.repo.Start(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(c, apperr.Business(apperr.CodeInvalidPollStatus, "poll is not in draft state"))
			return
		}
		response.Error(c, apperr.FromDB(err, "poll not found"))
		return
	}
	response.OK(c, "poll started", started)
}

// End handles POST /polls/:id/end.
func (h *Handler) End(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	if !h.requireMeetingAdmin(c, p.MeetingID) {
		return
	}
	closed, err := h.repo.Close(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Error(c, apperr.Business(apperr.CodeInvalidPollStatus, "poll is not active"))
			return
		}
		response.Error(c, apperr.FromDB(err, "poll not found"))
		return
	}
	response.OK(c, "poll closed", closed)
}

// Vote handles POST /polls/:id/responses.
func (h *Handler) Vote(c *gin.Context) {
	pollID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	resp, err := h.service.Vote(c.Request.Context(), VoteInput{
		PollID:         pollID,
		UserID:         middleware.UserID(c),
		OptionID:       req.OptionID,
		ResponseText:   req.ResponseText,
		ResponseNumber: req.ResponseNumber,
		IsAbstention:   req.IsAbstention,
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "vote recorded", resp)
}

// Statistics handles GET /polls/:id/statistics.
func (h *Handler) Statistics(c *gin.Context) {
	p, ok := h.loadPoll(c)
	if !ok {
		return
	}
	stats, err := h.repo.Statistics(c.Request.Context(), p)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "poll not found"))
		return
	}
	response.OK(c, "poll statistics", stats)
}

func (h *Handler) loadPoll(c *gin.Context) (*models.Poll, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "poll not found"))
		return nil, false
	}
	return p, true
}
