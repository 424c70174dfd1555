package models

import "errors"

// Sentinel errors shared across the check-in pipeline. Handlers map these to
// user-facing rejections; everything else is an internal error.
var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrTokenNotFound         = errors.New("check-in token not found")
	ErrTokenExpired          = errors.New("check-in token expired")
	ErrTokenInactive         = errors.New("check-in token inactive")
	ErrRegistrationCancelled = errors.New("registration is cancelled")
	ErrPresenceRecorded      = errors.New("presence already recorded")
	ErrUserNotFound          = errors.New("user not found")
	ErrCertificateNotFound   = errors.New("certificate not found")
	ErrPresenceNotFound      = errors.New("presence not found")

	// ErrAlreadyExists marks a storage uniqueness conflict. It is the
	// idempotency mechanism, not an error condition: the loser of a create
	// race re-reads the winner's row and carries on.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDownstreamUnavailable marks a collaborator timeout or failure.
	// Callers swallow it: certificates heal via reconciliation, notifications
	// are best-effort.
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
)
