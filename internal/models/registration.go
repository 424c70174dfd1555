package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration status values. A registration moves Active -> Cancelled and
// back on re-signup; it is never deleted once a presence exists.
const (
	RegistrationStatusActive    = "active"
	RegistrationStatusCancelled = "cancelled"
)

// Registration is a user's intent to attend an event. Unique per (user, event).
type Registration struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	EventID     uuid.UUID  `json:"event_id"`
	DisplayName string     `json:"display_name,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// RegistrationDetails is a registration joined with its presence and
// certificate for the listing endpoint. Presence and Certificate are nil
// when absent; CheckinDone mirrors Presence for the portal.
type RegistrationDetails struct {
	Registration
	Event       *Event          `json:"event,omitempty"`
	Presence    *PresenceRecord `json:"presence,omitempty"`
	Certificate *Certificate    `json:"certificate,omitempty"`
	CheckinDone bool            `json:"checkin_done"`
}
