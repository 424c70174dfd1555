package certificates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexstage/events-backend/internal/models"
)

// Repository stores the local certificate rows mirrored from the
// certificate service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a certificates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const certColumns = `id, registration_id, event_id, unique_code, template_id, issued_at, created_at`

// Create inserts a certificate row. A uniqueness conflict (registration
// already has a certificate, or the code is taken) comes back as
// models.ErrAlreadyExists so the issuer can re-read the winner.
func (r *Repository) Create(ctx context.Context, cert *models.Certificate) error {
	const q = `INSERT INTO certificates (id, registration_id, event_id, unique_code, template_id, issued_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, cert.RegistrationID, cert.EventID, cert.UniqueCode, cert.TemplateID, cert.IssuedAt).
		Scan(&cert.ID, &cert.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	return err
}

// GetByRegistration returns the certificate for a registration or
// models.ErrCertificateNotFound.
func (r *Repository) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.Certificate, error) {
	const q = `SELECT ` + certColumns + ` FROM certificates WHERE registration_id = $1`
	var cert models.Certificate
	err := r.pool.QueryRow(ctx, q, registrationID).
		Scan(&cert.ID, &cert.RegistrationID, &cert.EventID, &cert.UniqueCode, &cert.TemplateID, &cert.IssuedAt, &cert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetByCode returns a certificate by its unique code or
// models.ErrCertificateNotFound.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Certificate, error) {
	const q = `SELECT ` + certColumns + ` FROM certificates WHERE unique_code = $1`
	var cert models.Certificate
	err := r.pool.QueryRow(ctx, q, code).
		Scan(&cert.ID, &cert.RegistrationID, &cert.EventID, &cert.UniqueCode, &cert.TemplateID, &cert.IssuedAt, &cert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
