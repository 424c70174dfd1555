package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is an event that users register for and check in to.
// Owned by the events surface; the check-in pipeline references it by ID.
type Event struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description,omitempty"`
	StartsAt            time.Time  `json:"starts_at"`
	CertificateTemplate string     `json:"certificate_template"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}
