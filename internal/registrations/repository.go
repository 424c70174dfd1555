package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexstage/events-backend/internal/models"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `id, user_id, event_id, display_name, status, created_at, updated_at`

// Create inserts a registration. The unique (user_id, event_id) constraint
// makes sign-up idempotent: a race loser gets models.ErrAlreadyExists and
// re-reads the existing row.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, user_id, event_id, display_name, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	if reg.Status == "" {
		reg.Status = models.RegistrationStatusActive
	}
	err := r.pool.QueryRow(ctx, q, reg.UserID, reg.EventID, reg.DisplayName, reg.Status).
		Scan(&reg.ID, &reg.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	return err
}

// GetByID returns a registration or models.ErrRegistrationNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, id))
}

// GetByUserAndEvent returns the registration for (user, event) or
// models.ErrRegistrationNotFound.
func (r *Repository) GetByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations WHERE user_id = $1 AND event_id = $2`
	return r.scanOne(r.pool.QueryRow(ctx, q, userID, eventID))
}

// SetStatus updates a registration's status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrRegistrationNotFound
	}
	return nil
}

// HasPresence reports whether a presence record exists for the registration.
// Guards the cancel transition.
func (r *Repository) HasPresence(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM presences WHERE registration_id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, registrationID).Scan(&exists)
	return exists, err
}

// ListAll returns every registration (admin sync view).
func (r *Repository) ListAll(ctx context.Context) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+regColumns+` FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.DisplayName, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// ListDetailsByUser returns the caller's registrations joined with event,
// presence and certificate in one query. Explicit joins, no lazy loading:
// the reconciliation sweep needs presence and certificate together.
func (r *Repository) ListDetailsByUser(ctx context.Context, userID uuid.UUID) ([]models.RegistrationDetails, error) {
	const q = `SELECT
			r.id, r.user_id, r.event_id, r.display_name, r.status, r.created_at, r.updated_at,
			e.id, e.name, e.description, e.starts_at, e.certificate_template, e.created_at, e.updated_at,
			p.id, p.registration_id, p.user_id, p.event_id, p.origin, p.checked_in_at, p.created_at,
			c.id, c.registration_id, c.event_id, c.unique_code, c.template_id, c.issued_at, c.created_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		LEFT JOIN presences p ON p.registration_id = r.id
		LEFT JOIN certificates c ON c.registration_id = r.id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.RegistrationDetails
	for rows.Next() {
		var (
			d     models.RegistrationDetails
			event models.Event

			pID, pRegID, pUserID, pEventID *uuid.UUID
			pOrigin                        *string
			pCheckedInAt, pCreatedAt       *time.Time
			cID, cRegID, cEventID          *uuid.UUID
			cCode, cTemplate               *string
			cIssuedAt, cCreatedAt          *time.Time
		)
		err := rows.Scan(
			&d.ID, &d.UserID, &d.EventID, &d.DisplayName, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&event.ID, &event.Name, &event.Description, &event.StartsAt, &event.CertificateTemplate, &event.CreatedAt, &event.UpdatedAt,
			&pID, &pRegID, &pUserID, &pEventID, &pOrigin, &pCheckedInAt, &pCreatedAt,
			&cID, &cRegID, &cEventID, &cCode, &cTemplate, &cIssuedAt, &cCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		d.Event = &event
		if pID != nil {
			d.Presence = &models.PresenceRecord{
				ID:             *pID,
				RegistrationID: *pRegID,
				UserID:         *pUserID,
				EventID:        *pEventID,
				Origin:         *pOrigin,
				CheckedInAt:    *pCheckedInAt,
				CreatedAt:      *pCreatedAt,
			}
			d.CheckinDone = true
		}
		if cID != nil {
			d.Certificate = &models.Certificate{
				ID:             *cID,
				RegistrationID: *cRegID,
				EventID:        *cEventID,
				UniqueCode:     *cCode,
				TemplateID:     *cTemplate,
				IssuedAt:       *cIssuedAt,
				CreatedAt:      *cCreatedAt,
			}
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.DisplayName, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
