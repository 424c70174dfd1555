package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
)

// Store is the persistence surface the issuer needs.
type Store interface {
	Create(ctx context.Context, cert *models.Certificate) error
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Certificate, error)
}

// RemoteIssuer is the certificate collaborator call.
type RemoteIssuer interface {
	Issue(ctx context.Context, snap models.CertificateSnapshot) (*IssueResult, error)
}

// Issuer performs cross-service certificate issuance, idempotent by
// registration id. Concurrent callers converge on a single stored row: the
// loser of the insert race re-reads the winner instead of erroring.
type Issuer struct {
	store   Store
	remote  RemoteIssuer
	timeout time.Duration
	logger  *zap.Logger
}

// NewIssuer creates a certificate issuer. timeout bounds the remote call on
// the synchronous check-in path.
func NewIssuer(store Store, remote RemoteIssuer, timeout time.Duration, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Issuer{store: store, remote: remote, timeout: timeout, logger: logger}
}

// Issue returns the certificate for the snapshot's registration, creating it
// remotely and locally if needed. On downstream failure it returns a wrapped
// models.ErrDownstreamUnavailable with no side effects; reconciliation retries
// later.
func (i *Issuer) Issue(ctx context.Context, snap models.CertificateSnapshot) (*models.Certificate, error) {
	existing, err := i.store.GetByRegistration(ctx, snap.RegistrationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrCertificateNotFound) {
		return nil, err
	}

	issueCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	result, err := i.remote.Issue(issueCtx, snap)
	if err != nil {
		return nil, err
	}

	cert := &models.Certificate{
		RegistrationID: snap.RegistrationID,
		EventID:        snap.EventID,
		UniqueCode:     result.UniqueCode,
		TemplateID:     snap.TemplateID,
		IssuedAt:       result.IssuedAt,
	}
	if err := i.store.Create(ctx, cert); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			winner, readErr := i.store.GetByRegistration(ctx, snap.RegistrationID)
			if readErr != nil {
				return nil, readErr
			}
			i.logger.Debug("certificate race lost, returning winner",
				zap.String("registration_id", snap.RegistrationID.String()),
				zap.String("unique_code", winner.UniqueCode),
			)
			return winner, nil
		}
		return nil, err
	}

	i.logger.Info("certificate issued",
		zap.String("registration_id", cert.RegistrationID.String()),
		zap.String("unique_code", cert.UniqueCode),
	)
	return cert, nil
}
