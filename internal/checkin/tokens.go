package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexstage/events-backend/internal/clock"
	"github.com/nexstage/events-backend/internal/models"
)

// TokenStore is the persistence surface for check-in tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, t *models.CheckinToken) error
	GetToken(ctx context.Context, token uuid.UUID) (*models.CheckinToken, error)
	DeactivateTokensForEvent(ctx context.Context, eventID uuid.UUID) error
	DeactivateToken(ctx context.Context, token uuid.UUID) error
}

// EventStore resolves event existence for token generation.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// GeneratedToken is a freshly minted token plus the URL to encode in the QR.
type GeneratedToken struct {
	Token      *models.CheckinToken `json:"token"`
	CheckinURL string               `json:"checkin_url"`
}

// TokenService mints and validates event check-in tokens.
type TokenService struct {
	store       TokenStore
	events      EventStore
	clock       clock.Clock
	frontendURL string
	defaultTTL  time.Duration
	logger      *zap.Logger
}

// NewTokenService creates a token service. frontendURL is the base for
// public check-in links; defaultTTL applies when the caller gives no duration.
func NewTokenService(store TokenStore, events EventStore, clk clock.Clock, frontendURL string, defaultTTL time.Duration, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &TokenService{
		store:       store,
		events:      events,
		clock:       clk,
		frontendURL: frontendURL,
		defaultTTL:  defaultTTL,
		logger:      logger,
	}
}

// Generate mints a new token for the event, deactivating any previously
// active tokens first so at most one QR is live per event.
func (s *TokenService) Generate(ctx context.Context, eventID uuid.UUID, ttl time.Duration) (*GeneratedToken, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if err := s.store.DeactivateTokensForEvent(ctx, eventID); err != nil {
		return nil, err
	}

	token := &models.CheckinToken{
		Token:     uuid.New(),
		EventID:   eventID,
		ExpiresAt: s.clock.Now().Add(ttl),
		IsActive:  true,
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("checkin token generated",
		zap.String("event_id", eventID.String()),
		zap.Time("expires_at", token.ExpiresAt),
	)
	return &GeneratedToken{
		Token:      token,
		CheckinURL: fmt.Sprintf("%s/checkin/%s", s.frontendURL, token.Token),
	}, nil
}

// Validate resolves a token and checks it is usable. A token is expired from
// the exact expiry instant onward, and expiry is checked before the active
// flag so a token that is both expired and deactivated reports
// models.ErrTokenExpired.
func (s *TokenService) Validate(ctx context.Context, token uuid.UUID) (*models.CheckinToken, error) {
	t, err := s.store.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(t.ExpiresAt) {
		return nil, models.ErrTokenExpired
	}
	if !t.IsActive {
		return nil, models.ErrTokenInactive
	}
	return t, nil
}

// Deactivate revokes a token ahead of its expiry.
func (s *TokenService) Deactivate(ctx context.Context, token uuid.UUID) error {
	return s.store.DeactivateToken(ctx, token)
}
