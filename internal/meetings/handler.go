package meetings

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/conference"
	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/internal/units"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
)

// Notifier queues meeting invitation emails. Implemented by the
// notifications service.
type Notifier interface {
	NotifyMeetingInvite(ctx context.Context, meetingID int64)
}

// CreateRequest is the body for POST /meetings.
type CreateRequest struct {
	UnitID               int64    `json:"unit_id" binding:"required"`
	Title                string   `json:"title" binding:"required"`
	Description          string   `json:"description"`
	MeetingType          string   `json:"meeting_type"`
	ScheduledAt          string   `json:"scheduled_at" binding:"required"`
	EstimatedDurationMin int      `json:"estimated_duration_min"`
	LeaderID             *int64   `json:"leader_id"`
	AllowDelegates       *bool    `json:"allow_delegates"`
	QuorumThresholdPct   *float64 `json:"quorum_threshold_pct"`
}

// UpdateRequest is the body for PUT /meetings/:id.
type UpdateRequest struct {
	Title                *string  `json:"title"`
	Description          *string  `json:"description"`
	ScheduledAt          *string  `json:"scheduled_at"`
	EstimatedDurationMin *int     `json:"estimated_duration_min"`
	LeaderID             *int64   `json:"leader_id"`
	AllowDelegates       *bool    `json:"allow_delegates"`
	QuorumThresholdPct   *float64 `json:"quorum_threshold_pct"`
}

// Handler handles meeting HTTP endpoints.
type Handler struct {
	repo             *Repository
	service          *Service
	units            *units.Repository
	conference       *conference.Service
	notifier         Notifier
	defaultThreshold decimal.Decimal
	logger           *zap.Logger
}

// NewHandler creates a meetings handler.
func NewHandler(repo *Repository, service *Service, unitsRepo *units.Repository, conf *conference.Service, notifier Notifier, defaultThresholdPct float64, logger *zap.Logger) *Handler {
	return &Handler{
		repo:             repo,
		service:          service,
		units:            unitsRepo,
		conference:       conf,
		notifier:         notifier,
		defaultThreshold: decimal.NewFromFloat(defaultThresholdPct),
		logger:           logger,
	}
}

func (h *Handler) requireUnitAdmin(c *gin.Context, unitID int64) bool {
	if middleware.RoleID(c) == models.RoleSuperAdmin {
		return true
	}
	ok, err := h.units.IsUnitAdmin(c.Request.Context(), unitID, middleware.UserID(c))
	if err != nil {
		response.Error(c, apperr.FromDB(err, "unit not found"))
		return false
	}
	if !ok {
		response.Error(c, apperr.Forbidden(apperr.CodePermissionDenied, "caller is not an administrator of this unit"))
	}
	return ok
}

func (h *Handler) requireOrganizerOrLeader(c *gin.Context, m *models.Meeting) bool {
	if m.IsOrganizerOrLeader(middleware.UserID(c)) || middleware.RoleID(c) == models.RoleSuperAdmin {
		return true
	}
	response.Error(c, apperr.Forbidden(apperr.CodePermissionDenied, "only the organizer or leader may do this"))
	return false
}

// Create handles POST /meetings.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !h.requireUnitAdmin(c, req.UnitID) {
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		response.BadRequest(c, "invalid scheduled_at")
		return
	}

	m := &models.Meeting{
		UnitID:               req.UnitID,
		Code:                 NewMeetingCode(req.UnitID),
		Title:                req.Title,
		Description:          req.Description,
		MeetingType:          req.MeetingType,
		ScheduledAt:          scheduledAt,
		EstimatedDurationMin: req.EstimatedDurationMin,
		OrganizerID:          middleware.UserID(c),
		LeaderID:             req.LeaderID,
		AllowDelegates:       true,
		QuorumThresholdPct:   h.defaultThreshold,
	}
	if m.MeetingType == "" {
		m.MeetingType = "ordinary"
	}
	if m.EstimatedDurationMin == 0 {
		m.EstimatedDurationMin = 60
	}
	if req.AllowDelegates != nil {
		m.AllowDelegates = *req.AllowDelegates
	}
	if req.QuorumThresholdPct != nil {
		m.QuorumThresholdPct = decimal.NewFromFloat(*req.QuorumThresholdPct)
	}

	// Conference provisioning is opaque and best-effort.
	if alloc, err := h.conference.Allocate(c.Request.Context(), m.Code); err != nil {
		h.logger.Warn("conference allocation failed", zap.Error(err), zap.String("code", m.Code))
	} else {
		m.ConferenceID = alloc.ConferenceID
		m.JoinURL = alloc.JoinURL
		m.StartURL = alloc.StartURL
	}

	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not created"))
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyMeetingInvite(c.Request.Context(), m.ID)
	}
	response.Created(c, "meeting scheduled", m)
}

// GetByID handles GET /meetings/:id.
func (h *Handler) GetByID(c *gin.Context) {
	m, ok := h.loadMeeting(c)
	if !ok {
		return
	}
	response.OK(c, "meeting", m)
}

// List handles GET /meetings. Query ?unit_id filters by unit.
func (h *Handler) List(c *gin.Context) {
	var unitID *int64
	if v := c.Query("unit_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid unit_id")
			return
		}
		unitID = &id
	}
	list, err := h.repo.List(c.Request.Context(), unitID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meetings not listed"))
		return
	}
	response.OK(c, "meetings", list)
}

// Update handles PUT /meetings/:id (organizer or leader, Scheduled only).
func (h *Handler) Update(c *gin.Context) {
	m, ok := h.loadMeeting(c)
	if !ok {
		return
	}
	if !h.requireOrganizerOrLeader(c, m) {
		return
	}
	if m.Status != models.MeetingScheduled {
		response.Error(c, apperr.Business(apperr.CodeMeetingNotActive, "only scheduled meetings can be updated"))
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			response.BadRequest(c, "invalid scheduled_at")
			return
		}
		m.ScheduledAt = t
	}
	if req.EstimatedDurationMin != nil {
		m.EstimatedDurationMin = *req.EstimatedDurationMin
	}
	if req.LeaderID != nil {
		m.LeaderID = req.LeaderID
	}
	if req.AllowDelegates != nil {
		m.AllowDelegates = *req.AllowDelegates
	}
	if req.QuorumThresholdPct != nil {
		m.QuorumThresholdPct = decimal.NewFromFloat(*req.QuorumThresholdPct)
	}
	if err := h.repo.Update(c.Request.Context(), m); err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not updated"))
		return
	}
	response.OK(c, "meeting updated", m)
}

// Delete handles DELETE /meetings/:id (organizer or leader).
func (h *Handler) Delete(c *gin.Context) {
	m, ok := h.loadMeeting(c)
	if !ok {
		return
	}
	if !h.requireOrganizerOrLeader(c, m) {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), m.ID); err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not deleted"))
		return
	}
	response.OK(c, "meeting deleted", gin.H{"meeting_id": m.ID})
}

// Start handles POST /meetings/:id/start.
func (h *Handler) Start(c *gin.Context) {
	m, ok := h.loadMeeting(c)
	if !ok {
		return
	}
	if !h.requireOrganizerOrLeader(c, m) {
		return
	}
	started, err := h.repo.Start(c.Request.Context(), m.ID)
	if err != nil {
		response.Error(c, apperr.Business(apperr.CodeMeetingNotActive, "meeting is not in scheduled state"))
		return
	}
	response.OK(c, "meeting started", started)
}

// End handles POST /meetings/:id/end.
func (h *Handler) End(c *gin.Context) {
	m, ok := h.loadMeeting(c)
	if !ok {
		return
	}
	if !h.requireOrganizerOrLeader(c, m) {
		return
	}
	ended, err := h.service.End(c.Request.Context(), m)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "meeting completed", ended)
}

func (h *Handler) loadMeeting(c *gin.Context) (*models.Meeting, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return nil, false
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "meeting not found"))
		return nil, false
	}
	return m, true
}
