package certificates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nexstage/events-backend/internal/models"
)

type fakeStore struct {
	mu    sync.Mutex
	certs map[uuid.UUID]*models.Certificate
}

func newFakeStore() *fakeStore {
	return &fakeStore{certs: make(map[uuid.UUID]*models.Certificate)}
}

func (s *fakeStore) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[cert.RegistrationID]; ok {
		return models.ErrAlreadyExists
	}
	cert.ID = uuid.New()
	cert.CreatedAt = time.Now()
	cp := *cert
	s.certs[cert.RegistrationID] = &cp
	return nil
}

func (s *fakeStore) GetByRegistration(_ context.Context, registrationID uuid.UUID) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certs[registrationID]
	if !ok {
		return nil, models.ErrCertificateNotFound
	}
	cp := *cert
	return &cp, nil
}

type fakeRemote struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRemote) Issue(_ context.Context, snap models.CertificateSnapshot) (*IssueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &IssueResult{
		UniqueCode: fmt.Sprintf("CERT-%s-%d", snap.RegistrationID.String()[:8], f.calls),
		IssuedAt:   time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testSnapshot() models.CertificateSnapshot {
	return models.CertificateSnapshot{
		RegistrationID: uuid.New(),
		UserID:         uuid.New(),
		EventID:        uuid.New(),
		UserName:       "Ana Souza",
		UserEmail:      "ana@example.com",
		EventName:      "Go Conference",
		EventDate:      time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		TemplateID:     "default",
	}
}

func TestIssuerIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and stores a certificate", func(t *testing.T) {
		store := newFakeStore()
		remote := &fakeRemote{}
		issuer := NewIssuer(store, remote, time.Second, nil)
		snap := testSnapshot()

		cert, err := issuer.Issue(ctx, snap)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if cert.UniqueCode == "" {
			t.Error("empty unique code")
		}
		if cert.RegistrationID != snap.RegistrationID {
			t.Error("certificate bound to the wrong registration")
		}
		stored, err := store.GetByRegistration(ctx, snap.RegistrationID)
		if err != nil {
			t.Fatalf("stored row missing: %v", err)
		}
		if stored.UniqueCode != cert.UniqueCode {
			t.Error("stored code differs from returned code")
		}
	})

	t.Run("existing certificate short-circuits the remote call", func(t *testing.T) {
		store := newFakeStore()
		remote := &fakeRemote{}
		issuer := NewIssuer(store, remote, time.Second, nil)
		snap := testSnapshot()

		first, err := issuer.Issue(ctx, snap)
		if err != nil {
			t.Fatalf("first Issue: %v", err)
		}
		second, err := issuer.Issue(ctx, snap)
		if err != nil {
			t.Fatalf("second Issue: %v", err)
		}
		if second.UniqueCode != first.UniqueCode {
			t.Errorf("codes differ: %q vs %q", second.UniqueCode, first.UniqueCode)
		}
		if remote.callCount() != 1 {
			t.Errorf("remote calls = %d, want 1", remote.callCount())
		}
	})

	t.Run("downstream failure leaves no local row", func(t *testing.T) {
		store := newFakeStore()
		remote := &fakeRemote{err: fmt.Errorf("%w: certificates returned 503", models.ErrDownstreamUnavailable)}
		issuer := NewIssuer(store, remote, time.Second, nil)
		snap := testSnapshot()

		_, err := issuer.Issue(ctx, snap)
		if !errors.Is(err, models.ErrDownstreamUnavailable) {
			t.Fatalf("err = %v, want ErrDownstreamUnavailable", err)
		}
		if _, err := store.GetByRegistration(ctx, snap.RegistrationID); !errors.Is(err, models.ErrCertificateNotFound) {
			t.Error("failed issuance left a local row behind")
		}
	})

	t.Run("concurrent issuance converges on one certificate", func(t *testing.T) {
		store := newFakeStore()
		remote := &fakeRemote{}
		issuer := NewIssuer(store, remote, time.Second, nil)
		snap := testSnapshot()

		const n = 16
		codes := make([]string, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				cert, err := issuer.Issue(ctx, snap)
				if err != nil {
					errs[i] = err
					return
				}
				codes[i] = cert.UniqueCode
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("goroutine %d: %v", i, err)
			}
		}
		for i := 1; i < n; i++ {
			if codes[i] != codes[0] {
				t.Fatalf("goroutine %d got code %q, goroutine 0 got %q", i, codes[i], codes[0])
			}
		}
		stored, err := store.GetByRegistration(ctx, snap.RegistrationID)
		if err != nil {
			t.Fatalf("stored row missing: %v", err)
		}
		if stored.UniqueCode != codes[0] {
			t.Error("stored code differs from the converged code")
		}
	})
}
