package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/clock"
	"github.com/nexstage/events-backend/internal/models"
	"github.com/nexstage/events-backend/internal/users"
)

// PresenceStore is the persistence surface for presence records.
type PresenceStore interface {
	CreatePresence(ctx context.Context, p *models.PresenceRecord) error
	GetPresenceByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.PresenceRecord, error)
	DeletePresence(ctx context.Context, registrationID uuid.UUID) (bool, error)
}

// RegistrationStore is the slice of registration persistence check-in needs.
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
}

// CertificateIssuer is the idempotent issuance entry point.
type CertificateIssuer interface {
	Issue(ctx context.Context, snap models.CertificateSnapshot) (*models.Certificate, error)
}

// Notifier schedules a notification without reporting failure.
type Notifier interface {
	Dispatch(ctx context.Context, n models.Notification)
}

// UserDirectory resolves user contact data from the users service.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// FeedPublisher pushes a check-in onto the live admin feed.
type FeedPublisher interface {
	PublishCheckin(eventID uuid.UUID, p *models.PresenceRecord, displayName string)
}

// SyncItem is one offline check-in reported by the on-site kiosk.
type SyncItem struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
}

// SyncResult summarizes an offline batch import. Synced and IDs cover only
// presences this batch actually created; repeats and bad items are Skipped.
type SyncResult struct {
	Synced  int         `json:"synced"`
	Skipped int         `json:"skipped"`
	IDs     []uuid.UUID `json:"registration_ids"`
}

// Service records presences. Each write is idempotent per registration, and
// the follow-up work (certificate, notification, live feed) runs after the
// durable write so its failures never undo a recorded check-in.
type Service struct {
	presences     PresenceStore
	registrations RegistrationStore
	tokens        *TokenService
	events        EventStore
	issuer        CertificateIssuer
	notify        Notifier
	users         UserDirectory
	feed          FeedPublisher
	clock         clock.Clock
	singleUse     bool
	logger        *zap.Logger
}

// NewService creates a check-in service. When singleUse is set, a token is
// deactivated after the first check-in it produces.
func NewService(
	presences PresenceStore,
	registrations RegistrationStore,
	tokens *TokenService,
	events EventStore,
	issuer CertificateIssuer,
	notify Notifier,
	users UserDirectory,
	feed FeedPublisher,
	clk clock.Clock,
	singleUse bool,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		presences:     presences,
		registrations: registrations,
		tokens:        tokens,
		events:        events,
		issuer:        issuer,
		notify:        notify,
		users:         users,
		feed:          feed,
		clock:         clk,
		singleUse:     singleUse,
		logger:        logger,
	}
}

// RegisterPresence records a check-in for a registration. Returns the
// presence record and whether this call created it. Re-checking an already
// present registration succeeds without side effects.
func (s *Service) RegisterPresence(ctx context.Context, registrationID uuid.UUID, origin string) (*models.PresenceRecord, bool, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, false, err
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return nil, false, models.ErrRegistrationCancelled
	}
	return s.record(ctx, reg, origin, s.clock.Now())
}

// ConsumeToken is the public QR path: validates the token, ensures the caller
// has a registration (creating one on the spot if needed) and records the
// presence. With single-use tokens, a check-in this call created also
// deactivates the token.
func (s *Service) ConsumeToken(ctx context.Context, token, userID uuid.UUID, displayName, email string) (*models.PresenceRecord, error) {
	t, err := s.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetByUserAndEvent(ctx, userID, t.EventID)
	if errors.Is(err, models.ErrRegistrationNotFound) {
		reg = &models.Registration{
			UserID:      userID,
			EventID:     t.EventID,
			DisplayName: displayName,
			Status:      models.RegistrationStatusActive,
		}
		if createErr := s.registrations.Create(ctx, reg); createErr != nil {
			if !errors.Is(createErr, models.ErrAlreadyExists) {
				return nil, createErr
			}
			reg, err = s.registrations.GetByUserAndEvent(ctx, userID, t.EventID)
			if err != nil {
				return nil, err
			}
		} else {
			s.logger.Info("registration created at the door",
				zap.String("user_id", userID.String()),
				zap.String("event_id", t.EventID.String()),
			)
		}
	} else if err != nil {
		return nil, err
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return nil, models.ErrRegistrationCancelled
	}

	presence, created, err := s.record(ctx, reg, models.PresenceOriginQR, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if created && s.singleUse {
		if err := s.tokens.Deactivate(ctx, t.Token); err != nil {
			s.logger.Warn("single-use token deactivation failed",
				zap.Error(err), zap.String("token", t.Token.String()))
		}
	}
	return presence, nil
}

// SyncPresences imports a batch of offline check-ins, keeping each item's
// original check-in time. Items that fail to resolve or write are skipped so
// one bad row cannot sink the rest of the batch.
func (s *Service) SyncPresences(ctx context.Context, items []SyncItem) (SyncResult, error) {
	result := SyncResult{IDs: []uuid.UUID{}}
	for _, item := range items {
		reg, err := s.registrations.GetByID(ctx, item.RegistrationID)
		if err != nil {
			s.logger.Warn("sync item skipped",
				zap.Error(err), zap.String("registration_id", item.RegistrationID.String()))
			result.Skipped++
			continue
		}
		if reg.Status == models.RegistrationStatusCancelled {
			s.logger.Warn("sync item skipped: registration cancelled",
				zap.String("registration_id", item.RegistrationID.String()))
			result.Skipped++
			continue
		}
		at := item.CheckedInAt
		if at.IsZero() {
			at = s.clock.Now()
		}
		_, created, err := s.record(ctx, reg, models.PresenceOriginSyncedOffline, at)
		if err != nil {
			s.logger.Warn("sync item skipped: write failed",
				zap.Error(err), zap.String("registration_id", item.RegistrationID.String()))
			result.Skipped++
			continue
		}
		if !created {
			s.logger.Debug("sync item skipped: presence already recorded",
				zap.String("registration_id", item.RegistrationID.String()))
			result.Skipped++
			continue
		}
		result.Synced++
		result.IDs = append(result.IDs, item.RegistrationID)
	}
	return result, nil
}

// DeletePresence removes a presence record (admin correction). Deleting a
// missing record succeeds so offline tools can retry freely; the returned
// flag reports whether anything was removed.
func (s *Service) DeletePresence(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	found, err := s.presences.DeletePresence(ctx, registrationID)
	if err != nil {
		return false, err
	}
	if found {
		s.logger.Info("presence deleted", zap.String("registration_id", registrationID.String()))
	}
	return found, nil
}

// record writes the presence and, when this call created it, runs the
// follow-up work. Losing the insert race is success: the winner's record is
// returned with created=false.
func (s *Service) record(ctx context.Context, reg *models.Registration, origin string, at time.Time) (*models.PresenceRecord, bool, error) {
	presence := &models.PresenceRecord{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		Origin:         origin,
		CheckedInAt:    at,
	}
	if err := s.presences.CreatePresence(ctx, presence); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			existing, readErr := s.presences.GetPresenceByRegistration(ctx, reg.ID)
			if readErr != nil {
				return nil, false, readErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.afterCheckin(ctx, reg, presence)
	return presence, true, nil
}

// afterCheckin runs the best-effort follow-ups to a fresh presence record.
// Every step logs and moves on; the check-in already happened.
func (s *Service) afterCheckin(ctx context.Context, reg *models.Registration, presence *models.PresenceRecord) {
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		s.logger.Warn("event lookup failed after checkin",
			zap.Error(err), zap.String("event_id", reg.EventID.String()))
		return
	}

	name := reg.DisplayName
	email := ""
	if u, err := s.users.GetUser(ctx, reg.UserID); err == nil {
		email = u.Email
		if name == "" {
			name = u.DisplayName
		}
	} else {
		s.logger.Warn("user lookup failed after checkin",
			zap.Error(err), zap.String("user_id", reg.UserID.String()))
	}

	if _, err := s.issuer.Issue(ctx, models.CertificateSnapshot{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		UserName:       name,
		UserEmail:      email,
		EventName:      event.Name,
		EventDate:      event.StartsAt,
		TemplateID:     event.CertificateTemplate,
	}); err != nil {
		s.logger.Warn("certificate issuance failed after checkin, reconciliation will retry",
			zap.Error(err), zap.String("registration_id", reg.ID.String()))
	}

	if email != "" {
		s.notify.Dispatch(ctx, models.Notification{
			Kind:      models.NotificationKindCheckin,
			Recipient: email,
			Name:      name,
			EventName: event.Name,
		})
	}

	if s.feed != nil {
		s.feed.PublishCheckin(reg.EventID, presence, name)
	}
}
