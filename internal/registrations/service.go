package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/models"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	HasPresence(ctx context.Context, registrationID uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]models.Registration, error)
	ListDetailsByUser(ctx context.Context, userID uuid.UUID) ([]models.RegistrationDetails, error)
}

// EventStore resolves event metadata.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// CertificateIssuer is the idempotent cross-service issuance entry point.
type CertificateIssuer interface {
	Issue(ctx context.Context, snap models.CertificateSnapshot) (*models.Certificate, error)
}

// Notifier schedules a notification without reporting failure.
type Notifier interface {
	Dispatch(ctx context.Context, n models.Notification)
}

// Service implements the registration lifecycle: idempotent sign-up with
// reactivation, guarded cancellation, and the self-healing listing that
// repairs missing certificates inline.
type Service struct {
	store  Store
	events EventStore
	issuer CertificateIssuer
	notify Notifier
	logger *zap.Logger
}

// NewService creates a registrations service.
func NewService(store Store, events EventStore, issuer CertificateIssuer, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, issuer: issuer, notify: notify, logger: logger}
}

// RegisterInput identifies the user signing up. Email and display name come
// from the caller's token (or the users service on the admin path).
type RegisterInput struct {
	UserID      uuid.UUID
	EventID     uuid.UUID
	DisplayName string
	Email       string
}

// Register signs a user up for an event. Idempotent per (user, event):
// an Active registration is returned as-is, a Cancelled one is reactivated.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Registration, error) {
	event, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByUserAndEvent(ctx, in.UserID, in.EventID)
	if err == nil {
		if existing.Status == models.RegistrationStatusCancelled {
			if err := s.store.SetStatus(ctx, existing.ID, models.RegistrationStatusActive); err != nil {
				return nil, err
			}
			existing.Status = models.RegistrationStatusActive
			s.notify.Dispatch(ctx, models.Notification{
				Kind:      models.NotificationKindRegistration,
				Recipient: in.Email,
				Name:      displayName(in, existing),
				EventName: event.Name,
			})
		}
		return existing, nil
	}
	if !errors.Is(err, models.ErrRegistrationNotFound) {
		return nil, err
	}

	reg := &models.Registration{
		UserID:      in.UserID,
		EventID:     in.EventID,
		DisplayName: in.DisplayName,
		Status:      models.RegistrationStatusActive,
	}
	if err := s.store.Create(ctx, reg); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			// Lost a concurrent sign-up race; the winner's row is ours too.
			return s.store.GetByUserAndEvent(ctx, in.UserID, in.EventID)
		}
		return nil, err
	}

	s.notify.Dispatch(ctx, models.Notification{
		Kind:      models.NotificationKindRegistration,
		Recipient: in.Email,
		Name:      displayName(in, reg),
		EventName: event.Name,
	})
	return reg, nil
}

// Cancel moves the caller's registration to Cancelled. Forbidden once a
// presence record exists.
func (s *Service) Cancel(ctx context.Context, userID, registrationID uuid.UUID, email string) error {
	reg, err := s.store.GetByID(ctx, registrationID)
	if err != nil {
		return err
	}
	if reg.UserID != userID {
		return models.ErrRegistrationNotFound
	}

	present, err := s.store.HasPresence(ctx, registrationID)
	if err != nil {
		return err
	}
	if present {
		return models.ErrPresenceRecorded
	}

	if err := s.store.SetStatus(ctx, registrationID, models.RegistrationStatusCancelled); err != nil {
		return err
	}

	eventName := ""
	if event, err := s.events.GetByID(ctx, reg.EventID); err == nil {
		eventName = event.Name
	}
	s.notify.Dispatch(ctx, models.Notification{
		Kind:      models.NotificationKindCancellation,
		Recipient: email,
		Name:      reg.DisplayName,
		EventName: eventName,
	})
	return nil
}

// ListMine returns the caller's registrations and repairs certificate gaps
// inline: any registration with a presence but no certificate gets one
// issuance attempt before the response goes out. Failures leave the gap for
// the next read; the listing itself never fails because of them.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, email string) ([]models.RegistrationDetails, error) {
	details, err := s.store.ListDetailsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range details {
		d := &details[i]
		if d.Presence == nil || d.Certificate != nil {
			continue
		}
		cert, err := s.issuer.Issue(ctx, models.CertificateSnapshot{
			RegistrationID: d.ID,
			UserID:         d.UserID,
			EventID:        d.EventID,
			UserName:       d.DisplayName,
			UserEmail:      email,
			EventName:      d.Event.Name,
			EventDate:      d.Event.StartsAt,
			TemplateID:     d.Event.CertificateTemplate,
		})
		if err != nil {
			s.logger.Warn("certificate repair failed, will retry on next read",
				zap.Error(err),
				zap.String("registration_id", d.ID.String()),
			)
			continue
		}
		s.logger.Info("certificate repaired on read",
			zap.String("registration_id", d.ID.String()),
			zap.String("unique_code", cert.UniqueCode),
		)
		d.Certificate = cert
	}
	return details, nil
}

// ListAll returns every registration for the admin sync view.
func (s *Service) ListAll(ctx context.Context) ([]models.Registration, error) {
	return s.store.ListAll(ctx)
}

func displayName(in RegisterInput, reg *models.Registration) string {
	if in.DisplayName != "" {
		return in.DisplayName
	}
	return reg.DisplayName
}
