package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckinToken is a short-lived credential scoped to one event, embedded in
// the event's QR code. Read-only after creation except for the IsActive flag.
// Expiry is evaluated lazily at validation time; there is no background sweep.
type CheckinToken struct {
	Token     uuid.UUID `json:"token"`
	EventID   uuid.UUID `json:"event_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
