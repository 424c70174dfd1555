package checkin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexstage/events-backend/internal/models"
)

// Repository handles presence and check-in token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-in repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const presenceColumns = `id, registration_id, user_id, event_id, origin, checked_in_at, created_at`

// CreatePresence inserts a presence record. The unique registration_id
// constraint makes check-in idempotent: a second writer gets
// models.ErrAlreadyExists and re-reads the existing record.
func (r *Repository) CreatePresence(ctx context.Context, p *models.PresenceRecord) error {
	const q = `INSERT INTO presences (id, registration_id, user_id, event_id, origin, checked_in_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, p.RegistrationID, p.UserID, p.EventID, p.Origin, p.CheckedInAt).
		Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	return err
}

// GetPresenceByRegistration returns the presence record for a registration or
// models.ErrPresenceNotFound.
func (r *Repository) GetPresenceByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.PresenceRecord, error) {
	const q = `SELECT ` + presenceColumns + ` FROM presences WHERE registration_id = $1`
	var p models.PresenceRecord
	err := r.pool.QueryRow(ctx, q, registrationID).
		Scan(&p.ID, &p.RegistrationID, &p.UserID, &p.EventID, &p.Origin, &p.CheckedInAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrPresenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePresence removes the presence record for a registration. Returns
// whether a record was actually deleted.
func (r *Repository) DeletePresence(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	const q = `DELETE FROM presences WHERE registration_id = $1`
	tag, err := r.pool.Exec(ctx, q, registrationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreateToken inserts a check-in token.
func (r *Repository) CreateToken(ctx context.Context, t *models.CheckinToken) error {
	const q = `INSERT INTO checkin_tokens (token, event_id, expires_at, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, t.Token, t.EventID, t.ExpiresAt, t.IsActive).Scan(&t.CreatedAt)
}

// GetToken returns a token or models.ErrTokenNotFound.
func (r *Repository) GetToken(ctx context.Context, token uuid.UUID) (*models.CheckinToken, error) {
	const q = `SELECT token, event_id, expires_at, is_active, created_at FROM checkin_tokens WHERE token = $1`
	var t models.CheckinToken
	err := r.pool.QueryRow(ctx, q, token).
		Scan(&t.Token, &t.EventID, &t.ExpiresAt, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeactivateTokensForEvent flips every active token for the event to inactive.
// Runs before minting a replacement so one token is live per event.
func (r *Repository) DeactivateTokensForEvent(ctx context.Context, eventID uuid.UUID) error {
	const q = `UPDATE checkin_tokens SET is_active = FALSE WHERE event_id = $1 AND is_active`
	_, err := r.pool.Exec(ctx, q, eventID)
	return err
}

// DeactivateToken flips a single token to inactive.
func (r *Repository) DeactivateToken(ctx context.Context, token uuid.UUID) error {
	const q = `UPDATE checkin_tokens SET is_active = FALSE WHERE token = $1`
	tag, err := r.pool.Exec(ctx, q, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrTokenNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
