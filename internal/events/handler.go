package events

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/pkg/response"
)

// CreateRequest is the body for POST /admin/events.
type CreateRequest struct {
	Name                string    `json:"name" binding:"required"`
	Description         string    `json:"description"`
	StartsAt            time.Time `json:"starts_at" binding:"required"`
	CertificateTemplate string    `json:"certificate_template"`
}

// UpdateRequest is the body for PATCH /admin/events/:id.
type UpdateRequest struct {
	Name                *string    `json:"name"`
	Description         *string    `json:"description"`
	StartsAt            *time.Time `json:"starts_at"`
	CertificateTemplate *string    `json:"certificate_template"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, models.ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("get event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to get event")
		return
	}
	response.OK(c, e)
}

// Create handles POST /admin/events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tmpl := req.CertificateTemplate
	if tmpl == "" {
		tmpl = "default"
	}
	e := &models.Event{
		Name:                req.Name,
		Description:         req.Description,
		StartsAt:            req.StartsAt,
		CertificateTemplate: tmpl,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	h.logger.Info("event created", zap.String("event_id", e.ID.String()))
	response.Created(c, e)
}

// Update handles PATCH /admin/events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.Update(c.Request.Context(), id, UpdateFields{
		Name:                req.Name,
		Description:         req.Description,
		StartsAt:            req.StartsAt,
		CertificateTemplate: req.CertificateTemplate,
	})
	if errors.Is(err, models.ErrEventNotFound) {
		response.NotFound(c, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}
