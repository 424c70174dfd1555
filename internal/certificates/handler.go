package certificates

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/pkg/response"
)

// Validator checks a certificate code against the certificate service.
type Validator interface {
	Validate(ctx context.Context, code string) (*ValidationResult, error)
}

// CodeStore looks a certificate up in the local mirror by its unique code.
type CodeStore interface {
	GetByCode(ctx context.Context, code string) (*models.Certificate, error)
}

// Handler exposes the public certificate validation proxy.
type Handler struct {
	remote Validator
	store  CodeStore
	logger *zap.Logger
}

// NewHandler creates a certificates handler.
func NewHandler(remote Validator, store CodeStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{remote: remote, store: store, logger: logger}
}

// Validate handles GET /certificates/validate/:code. Forwards to the
// certificate service so the portal can verify a scanned code. When the
// service is unreachable, a hit in the local mirror still confirms the code;
// a local miss proves nothing, so that stays an error.
func (h *Handler) Validate(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, "code required")
		return
	}
	result, err := h.remote.Validate(c.Request.Context(), code)
	if err == nil {
		response.OK(c, result)
		return
	}
	h.logger.Warn("certificate validation unavailable, checking local mirror",
		zap.Error(err), zap.String("code", code))

	cert, lookupErr := h.store.GetByCode(c.Request.Context(), code)
	if lookupErr != nil {
		if !errors.Is(lookupErr, models.ErrCertificateNotFound) {
			h.logger.Error("local certificate lookup failed", zap.Error(lookupErr), zap.String("code", code))
		}
		response.Internal(c, "certificate validation unavailable")
		return
	}
	issuedAt := cert.IssuedAt
	response.OK(c, &ValidationResult{Valid: true, IssuedAt: &issuedAt})
}
