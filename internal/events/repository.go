package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexstage/events-backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, name, description, starts_at, certificate_template, created_at, updated_at`

// GetByID returns an event or models.ErrEventNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.CertificateTemplate, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all events ordered by start date.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.CertificateTemplate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, name, description, starts_at, certificate_template)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Description, e.StartsAt, e.CertificateTemplate).
		Scan(&e.ID, &e.CreatedAt)
}

// UpdateFields holds optional patch fields for an event.
type UpdateFields struct {
	Name                *string
	Description         *string
	StartsAt            *time.Time
	CertificateTemplate *string
}

// Update applies the set fields to an event and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Event, error) {
	const q = `UPDATE events SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			starts_at = COALESCE($4, starts_at),
			certificate_template = COALESCE($5, certificate_template),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id, f.Name, f.Description, f.StartsAt, f.CertificateTemplate).
		Scan(&e.ID, &e.Name, &e.Description, &e.StartsAt, &e.CertificateTemplate, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
