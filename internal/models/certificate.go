package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the locally stored record of an issued certificate.
// Write-once: one per registration, unique code, never mutated after issuance.
type Certificate struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	EventID        uuid.UUID `json:"event_id"`
	UniqueCode     string    `json:"unique_code"`
	TemplateID     string    `json:"template_id,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// CertificateSnapshot carries the denormalized data sent to the certificate
// service. Captured at call time: later edits to the user or event do not
// touch an already issued certificate.
type CertificateSnapshot struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	UserID         uuid.UUID `json:"user_id"`
	EventID        uuid.UUID `json:"event_id"`
	UserName       string    `json:"user_name"`
	UserEmail      string    `json:"user_email"`
	EventName      string    `json:"event_name"`
	EventDate      time.Time `json:"event_date"`
	TemplateID     string    `json:"template_id"`
}
