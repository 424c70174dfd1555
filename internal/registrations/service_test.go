package registrations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nexstage/events-backend/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	regs      map[uuid.UUID]*models.Registration
	presences map[uuid.UUID]bool
	details   []models.RegistrationDetails
}

func newFakeStore(regs ...*models.Registration) *fakeStore {
	s := &fakeStore{
		regs:      make(map[uuid.UUID]*models.Registration),
		presences: make(map[uuid.UUID]bool),
	}
	for _, r := range regs {
		s.regs[r.ID] = r
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.UserID == reg.UserID && r.EventID == reg.EventID {
			return models.ErrAlreadyExists
		}
	}
	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	cp := *reg
	s.regs[reg.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return nil, models.ErrRegistrationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) GetByUserAndEvent(_ context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.UserID == userID && r.EventID == eventID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, models.ErrRegistrationNotFound
}

func (s *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return models.ErrRegistrationNotFound
	}
	r.Status = status
	return nil
}

func (s *fakeStore) HasPresence(_ context.Context, registrationID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presences[registrationID], nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Registration
	for _, r := range s.regs {
		list = append(list, *r)
	}
	return list, nil
}

func (s *fakeStore) ListDetailsByUser(_ context.Context, _ uuid.UUID) ([]models.RegistrationDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details, nil
}

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
}

func newFakeEvents(events ...*models.Event) *fakeEvents {
	m := make(map[uuid.UUID]*models.Event)
	for _, e := range events {
		m[e.ID] = e
	}
	return &fakeEvents{events: m}
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return e, nil
}

type fakeIssuer struct {
	mu    sync.Mutex
	snaps []models.CertificateSnapshot
	err   error
}

func (f *fakeIssuer) Issue(_ context.Context, snap models.CertificateSnapshot) (*models.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Certificate{
		ID:             uuid.New(),
		RegistrationID: snap.RegistrationID,
		EventID:        snap.EventID,
		UniqueCode:     "CERT-" + snap.RegistrationID.String()[:8],
	}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (f *fakeNotifier) Dispatch(_ context.Context, n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func testEvent() *models.Event {
	return &models.Event{
		ID:                  uuid.New(),
		Name:                "Go Conference",
		StartsAt:            time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		CertificateTemplate: "default",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a registration and notifies", func(t *testing.T) {
		event := testEvent()
		store := newFakeStore()
		notifier := &fakeNotifier{}
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, notifier, nil)

		reg, err := svc.Register(ctx, RegisterInput{
			UserID:      uuid.New(),
			EventID:     event.ID,
			DisplayName: "Ana Souza",
			Email:       "ana@example.com",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if reg.Status != models.RegistrationStatusActive {
			t.Errorf("Status = %q", reg.Status)
		}
		if len(notifier.sent) != 1 {
			t.Fatalf("notifications = %d, want 1", len(notifier.sent))
		}
		if notifier.sent[0].Kind != models.NotificationKindRegistration {
			t.Errorf("Kind = %q", notifier.sent[0].Kind)
		}
	})

	t.Run("repeat sign-up returns the existing registration", func(t *testing.T) {
		event := testEvent()
		store := newFakeStore()
		notifier := &fakeNotifier{}
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, notifier, nil)

		in := RegisterInput{UserID: uuid.New(), EventID: event.ID, DisplayName: "Ana", Email: "ana@example.com"}
		first, err := svc.Register(ctx, in)
		if err != nil {
			t.Fatalf("first Register: %v", err)
		}
		second, err := svc.Register(ctx, in)
		if err != nil {
			t.Fatalf("second Register: %v", err)
		}
		if second.ID != first.ID {
			t.Error("repeat sign-up created a second registration")
		}
		if len(notifier.sent) != 1 {
			t.Errorf("notifications = %d, want 1 (no notification on repeat)", len(notifier.sent))
		}
	})

	t.Run("cancelled registration is reactivated", func(t *testing.T) {
		event := testEvent()
		reg := &models.Registration{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			EventID:     event.ID,
			DisplayName: "Ana",
			Status:      models.RegistrationStatusCancelled,
		}
		store := newFakeStore(reg)
		notifier := &fakeNotifier{}
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, notifier, nil)

		got, err := svc.Register(ctx, RegisterInput{UserID: reg.UserID, EventID: event.ID, Email: "ana@example.com"})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if got.ID != reg.ID {
			t.Error("reactivation created a new row")
		}
		if got.Status != models.RegistrationStatusActive {
			t.Errorf("Status = %q, want active", got.Status)
		}
		if len(notifier.sent) != 1 {
			t.Errorf("notifications = %d, want 1", len(notifier.sent))
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		svc := NewService(newFakeStore(), newFakeEvents(), &fakeIssuer{}, &fakeNotifier{}, nil)
		_, err := svc.Register(ctx, RegisterInput{UserID: uuid.New(), EventID: uuid.New()})
		if !errors.Is(err, models.ErrEventNotFound) {
			t.Errorf("err = %v, want ErrEventNotFound", err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	event := testEvent()

	newReg := func() *models.Registration {
		return &models.Registration{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			EventID:     event.ID,
			DisplayName: "Ana",
			Status:      models.RegistrationStatusActive,
		}
	}

	t.Run("cancels and notifies", func(t *testing.T) {
		reg := newReg()
		store := newFakeStore(reg)
		notifier := &fakeNotifier{}
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, notifier, nil)

		if err := svc.Cancel(ctx, reg.UserID, reg.ID, "ana@example.com"); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		got, _ := store.GetByID(ctx, reg.ID)
		if got.Status != models.RegistrationStatusCancelled {
			t.Errorf("Status = %q, want cancelled", got.Status)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].Kind != models.NotificationKindCancellation {
			t.Error("expected one cancellation notification")
		}
	})

	t.Run("rejected once a presence exists", func(t *testing.T) {
		reg := newReg()
		store := newFakeStore(reg)
		store.presences[reg.ID] = true
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, &fakeNotifier{}, nil)

		err := svc.Cancel(ctx, reg.UserID, reg.ID, "")
		if !errors.Is(err, models.ErrPresenceRecorded) {
			t.Errorf("err = %v, want ErrPresenceRecorded", err)
		}
		got, _ := store.GetByID(ctx, reg.ID)
		if got.Status != models.RegistrationStatusActive {
			t.Error("status changed despite the guard")
		}
	})

	t.Run("someone else's registration looks like not found", func(t *testing.T) {
		reg := newReg()
		store := newFakeStore(reg)
		svc := NewService(store, newFakeEvents(event), &fakeIssuer{}, &fakeNotifier{}, nil)

		err := svc.Cancel(ctx, uuid.New(), reg.ID, "")
		if !errors.Is(err, models.ErrRegistrationNotFound) {
			t.Errorf("err = %v, want ErrRegistrationNotFound", err)
		}
	})
}

func TestListMineRepair(t *testing.T) {
	ctx := context.Background()
	event := testEvent()
	userID := uuid.New()

	detail := func(withPresence, withCert bool) models.RegistrationDetails {
		d := models.RegistrationDetails{
			Registration: models.Registration{
				ID:          uuid.New(),
				UserID:      userID,
				EventID:     event.ID,
				DisplayName: "Ana",
				Status:      models.RegistrationStatusActive,
			},
			Event: event,
		}
		if withPresence {
			d.Presence = &models.PresenceRecord{
				ID:             uuid.New(),
				RegistrationID: d.ID,
				UserID:         userID,
				EventID:        event.ID,
				Origin:         models.PresenceOriginOnline,
				CheckedInAt:    time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
			}
			d.CheckinDone = true
		}
		if withCert {
			d.Certificate = &models.Certificate{
				ID:             uuid.New(),
				RegistrationID: d.ID,
				EventID:        event.ID,
				UniqueCode:     "CERT-EXISTING",
			}
		}
		return d
	}

	t.Run("fills the presence-without-certificate gap", func(t *testing.T) {
		store := newFakeStore()
		store.details = []models.RegistrationDetails{
			detail(false, false), // not checked in, leave alone
			detail(true, false),  // the gap
			detail(true, true),   // already complete
		}
		issuer := &fakeIssuer{}
		svc := NewService(store, newFakeEvents(event), issuer, &fakeNotifier{}, nil)

		details, err := svc.ListMine(ctx, userID, "ana@example.com")
		if err != nil {
			t.Fatalf("ListMine: %v", err)
		}
		if len(issuer.snaps) != 1 {
			t.Fatalf("issuer calls = %d, want 1", len(issuer.snaps))
		}
		if issuer.snaps[0].RegistrationID != store.details[1].ID {
			t.Error("issued for the wrong registration")
		}
		if details[1].Certificate == nil {
			t.Error("gap not filled in the response")
		}
		if details[2].Certificate.UniqueCode != "CERT-EXISTING" {
			t.Error("complete row was touched")
		}
	})

	t.Run("issuance failure keeps the listing alive", func(t *testing.T) {
		store := newFakeStore()
		store.details = []models.RegistrationDetails{detail(true, false)}
		issuer := &fakeIssuer{err: models.ErrDownstreamUnavailable}
		svc := NewService(store, newFakeEvents(event), issuer, &fakeNotifier{}, nil)

		details, err := svc.ListMine(ctx, userID, "ana@example.com")
		if err != nil {
			t.Fatalf("ListMine: %v", err)
		}
		if len(details) != 1 {
			t.Fatalf("details = %d, want 1", len(details))
		}
		if details[0].Certificate != nil {
			t.Error("certificate set despite issuer failure")
		}
	})
}
