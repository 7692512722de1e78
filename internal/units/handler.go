package units

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/auth"
	"github.com/vecinal/backend/internal/middleware"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
	"github.com/vecinal/backend/pkg/response"
	"github.com/vecinal/backend/pkg/utils"
)

// CreateRequest is the body for POST /units.
type CreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// RotateAdminRequest is the body for POST /units/:id/admin.
type RotateAdminRequest struct {
	// Either promote an existing member...
	NewAdminUserID *int64 `json:"new_admin_user_id"`
	// ...or create the administrator from scratch.
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	ApartmentNumber string `json:"apartment_number"`
}

// BatchMemberRequest is the body for POST /units/:id/members/batch.
type BatchMemberRequest struct {
	Members []BatchMember `json:"members" binding:"required,min=1,dive"`
}

// BatchMember is one co-owner to create and attach to the unit.
type BatchMember struct {
	Username        string          `json:"username" binding:"required"`
	FullName        string          `json:"full_name" binding:"required"`
	Email           string          `json:"email" binding:"required,email"`
	ApartmentNumber string          `json:"apartment_number" binding:"required"`
	DefaultWeight   decimal.Decimal `json:"default_weight"`
}

// Handler handles unit HTTP endpoints.
type Handler struct {
	repo     *Repository
	authRepo *auth.Repository
	notifier auth.Notifier
	logger   *zap.Logger
}

// NewHandler creates a units handler.
func NewHandler(repo *Repository, authRepo *auth.Repository, notifier auth.Notifier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, authRepo: authRepo, notifier: notifier, logger: logger}
}

// Create handles POST /units (super admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	actorID := middleware.UserID(c)
	u := &models.Unit{Name: req.Name, Address: req.Address, CreatedBy: &actorID}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		response.Error(c, apperr.FromDB(err, "unit not created"))
		return
	}
	response.Created(c, "unit created", u)
}

// ListMembers handles GET /units/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	list, err := h.repo.ListMembers(c.Request.Context(), unitID)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "unit not found"))
		return
	}
	response.OK(c, "members", list)
}

// RotateAdmin handles POST /units/:id/admin: promotes an existing member or
// creates a new administrator with generated credentials.
func (h *Handler) RotateAdmin(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	var req RotateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if req.NewAdminUserID != nil {
		if err := h.repo.RotateAdmin(c.Request.Context(), unitID, *req.NewAdminUserID); err != nil {
			if err == ErrNoMembership {
				response.Error(c, apperr.NotFound(apperr.CodeResourceNotFound, "new admin has no membership in unit"))
				return
			}
			response.Error(c, apperr.FromDB(err, "unit has no current admin"))
			return
		}
		response.OK(c, "administrator rotated", gin.H{"unit_id": unitID, "admin_user_id": *req.NewAdminUserID})
		return
	}

	if req.Username == "" || req.Email == "" {
		response.BadRequest(c, "username and email are required to create an administrator")
		return
	}
	password := uuid.New().String()
	hash, err := utils.HashPassword(password)
	if err != nil {
		response.Error(c, apperr.Wrap(err, "failed to hash password"))
		return
	}
	user, err := h.repo.CreateAdmin(c.Request.Context(), unitID, req.Username, hash, req.FullName, req.Email, req.ApartmentNumber)
	if err != nil {
		response.Error(c, apperr.FromDB(err, "administrator not created"))
		return
	}
	if h.notifier != nil {
		h.notifier.NotifyCredentials(c.Request.Context(), user, password)
	}
	response.Created(c, "administrator created", user.ToPublic())
}

// BatchMembers handles POST /units/:id/members/batch: creates co-owner users
// and memberships in bulk, queueing credential emails.
func (h *Handler) BatchMembers(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	var req BatchMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	created := make([]models.UserPublic, 0, len(req.Members))
	for _, m := range req.Members {
		if models.IsSentinelApartment(m.ApartmentNumber) {
			response.BadRequest(c, "apartment number "+m.ApartmentNumber+" is reserved")
			return
		}
		password := uuid.New().String()
		hash, err := utils.HashPassword(password)
		if err != nil {
			response.Error(c, apperr.Wrap(err, "failed to hash password"))
			return
		}
		user, err := h.authRepo.Create(c.Request.Context(), m.Username, hash, m.FullName, m.Email, models.RoleCoOwner)
		if err != nil {
			response.Error(c, apperr.FromDB(err, "member not created"))
			return
		}
		membership := &models.UnitMembership{
			UserID:          user.ID,
			UnitID:          unitID,
			ApartmentNumber: m.ApartmentNumber,
			DefaultWeight:   m.DefaultWeight,
		}
		if err := h.repo.UpsertMembership(c.Request.Context(), membership); err != nil {
			response.Error(c, apperr.FromDB(err, "membership not created"))
			return
		}
		if h.notifier != nil {
			h.notifier.NotifyCredentials(c.Request.Context(), user, password)
		}
		created = append(created, user.ToPublic())
	}
	response.Created(c, "members created", created)
}

// Delete handles DELETE /units/:id (super admin only).
func (h *Handler) Delete(c *gin.Context) {
	unitID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid unit id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), unitID); err != nil {
		response.Error(c, apperr.FromDB(err, "unit not found"))
		return
	}
	response.OK(c, "unit deleted", gin.H{"unit_id": unitID})
}
