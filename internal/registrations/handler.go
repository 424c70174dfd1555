package registrations

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/middleware"
	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/internal/users"
	"github.com/nexstage/events-backend/pkg/response"
)

// UserDirectory resolves user contact data for admin-created registrations.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// CreateRequest is the body for POST /registrations.
type CreateRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
}

// AdminCreateRequest is the body for POST /admin/registrations.
type AdminCreateRequest struct {
	UserID  uuid.UUID `json:"user_id" binding:"required"`
	EventID uuid.UUID `json:"event_id" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	users  UserDirectory
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, users UserDirectory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, users: users, logger: logger}
}

// Create handles POST /registrations.
func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.svc.Register(c.Request.Context(), RegisterInput{
		UserID:      userID,
		EventID:     req.EventID,
		DisplayName: c.GetString(middleware.ContextUserName),
		Email:       c.GetString(middleware.ContextUserEmail),
	})
	if errors.Is(err, models.ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("register failed", zap.Error(err), zap.String("event_id", req.EventID.String()))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// ListMine handles GET /registrations/me with inline certificate repair.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	details, err := h.svc.ListMine(c.Request.Context(), userID, c.GetString(middleware.ContextUserEmail))
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, details)
}

// Cancel handles PATCH /registrations/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	err = h.svc.Cancel(c.Request.Context(), userID, regID, c.GetString(middleware.ContextUserEmail))
	switch {
	case errors.Is(err, models.ErrRegistrationNotFound):
		response.NotFound(c, "registration not found")
	case errors.Is(err, models.ErrPresenceRecorded):
		response.Conflict(c, "cannot cancel: presence already recorded")
	case err != nil:
		h.logger.Error("cancel failed", zap.Error(err), zap.String("registration_id", regID.String()))
		response.Internal(c, "failed to cancel registration")
	default:
		response.OK(c, gin.H{"cancelled": true})
	}
}

// AdminList handles GET /admin/registrations.
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list all registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// AdminCreate handles POST /admin/registrations. User contact data is fetched
// from the users service but its absence does not block the registration.
func (h *Handler) AdminCreate(c *gin.Context) {
	var req AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	in := RegisterInput{UserID: req.UserID, EventID: req.EventID}
	if u, err := h.users.GetUser(c.Request.Context(), req.UserID); err == nil {
		in.DisplayName = u.DisplayName
		in.Email = u.Email
	} else {
		h.logger.Warn("user lookup failed for admin registration",
			zap.Error(err), zap.String("user_id", req.UserID.String()))
	}

	reg, err := h.svc.Register(c.Request.Context(), in)
	if errors.Is(err, models.ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("admin register failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}
