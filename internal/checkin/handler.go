package checkin

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/middleware"
	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/pkg/response"
)

// GenerateTokenRequest is the body for POST /admin/events/:id/checkin-token.
type GenerateTokenRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

// AdminCheckinRequest is the body for POST /admin/registrations/:id/checkin.
type AdminCheckinRequest struct {
	Origin string `json:"origin"`
}

// SyncRequest is the body for POST /admin/checkin/sync.
type SyncRequest struct {
	Items []SyncItem `json:"items" binding:"required"`
}

// Handler handles check-in HTTP endpoints.
type Handler struct {
	svc    *Service
	tokens *TokenService
	logger *zap.Logger
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service, tokens *TokenService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// GenerateToken handles POST /admin/events/:id/checkin-token.
func (h *Handler) GenerateToken(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req GenerateTokenRequest
	// An empty or absent body means "use the default duration".
	_ = c.ShouldBindJSON(&req)

	generated, err := h.tokens.Generate(c.Request.Context(), eventID, time.Duration(req.DurationMinutes)*time.Minute)
	if errors.Is(err, models.ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, generated)
}

// DeactivateToken handles DELETE /admin/checkin-tokens/:token.
func (h *Handler) DeactivateToken(c *gin.Context) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		response.BadRequest(c, "invalid token")
		return
	}
	err = h.tokens.Deactivate(c.Request.Context(), token)
	if errors.Is(err, models.ErrTokenNotFound) {
		response.NotFound(c, "token not found")
		return
	}
	if err != nil {
		h.logger.Error("token deactivation failed", zap.Error(err))
		response.Internal(c, "failed to deactivate token")
		return
	}
	response.OK(c, gin.H{"deactivated": true})
}

// AdminCheckin handles POST /admin/registrations/:id/checkin.
func (h *Handler) AdminCheckin(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req AdminCheckinRequest
	_ = c.ShouldBindJSON(&req)
	origin := req.Origin
	switch origin {
	case "":
		origin = models.PresenceOriginOnline
	case models.PresenceOriginOnline, models.PresenceOriginQR, models.PresenceOriginSyncedOffline:
	default:
		response.BadRequest(c, "invalid origin")
		return
	}

	presence, created, err := h.svc.RegisterPresence(c.Request.Context(), regID, origin)
	switch {
	case errors.Is(err, models.ErrRegistrationNotFound):
		response.NotFound(c, "registration not found")
	case errors.Is(err, models.ErrRegistrationCancelled):
		response.Conflict(c, "registration is cancelled")
	case err != nil:
		h.logger.Error("checkin failed", zap.Error(err), zap.String("registration_id", regID.String()))
		response.Internal(c, "failed to record presence")
	case created:
		response.Created(c, presence)
	default:
		response.OK(c, presence)
	}
}

// ConsumeQR handles POST /checkin/:token for authenticated attendees.
func (h *Handler) ConsumeQR(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		response.BadRequest(c, "invalid token")
		return
	}

	presence, err := h.svc.ConsumeToken(
		c.Request.Context(),
		token,
		userID,
		c.GetString(middleware.ContextUserName),
		c.GetString(middleware.ContextUserEmail),
	)
	switch {
	case errors.Is(err, models.ErrTokenNotFound):
		response.NotFound(c, "token not found")
	case errors.Is(err, models.ErrTokenExpired):
		response.Forbidden(c, "token expired")
	case errors.Is(err, models.ErrTokenInactive):
		response.Forbidden(c, "token deactivated")
	case errors.Is(err, models.ErrRegistrationCancelled):
		response.Conflict(c, "registration is cancelled")
	case err != nil:
		h.logger.Error("qr checkin failed", zap.Error(err), zap.String("token", token.String()))
		response.Internal(c, "failed to record presence")
	default:
		response.OK(c, presence)
	}
}

// SyncPresences handles POST /admin/checkin/sync.
func (h *Handler) SyncPresences(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.svc.SyncPresences(c.Request.Context(), req.Items)
	if err != nil {
		h.logger.Error("presence sync failed", zap.Error(err))
		response.Internal(c, "failed to sync presences")
		return
	}
	response.OK(c, result)
}

// DeletePresence handles DELETE /admin/registrations/:id/presence.
func (h *Handler) DeletePresence(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	deleted, err := h.svc.DeletePresence(c.Request.Context(), regID)
	if err != nil {
		h.logger.Error("presence deletion failed", zap.Error(err), zap.String("registration_id", regID.String()))
		response.Internal(c, "failed to delete presence")
		return
	}
	response.OK(c, gin.H{"deleted": deleted})
}
