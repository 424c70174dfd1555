package models

import (
	"time"

	"github.com/google/uuid"
)

// Presence origins.
const (
	PresenceOriginOnline        = "online"
	PresenceOriginQR            = "qr"
	PresenceOriginSyncedOffline = "synced_offline"
)

// PresenceRecord is the durable record that a registered user checked in.
// At most one exists per registration; it is write-once.
type PresenceRecord struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	UserID         uuid.UUID `json:"user_id"`
	EventID        uuid.UUID `json:"event_id"`
	Origin         string    `json:"origin"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	CreatedAt      time.Time `json:"created_at"`
}
