package serviceRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"astrobook/models"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("service not found")
	// ErrInUse is returned when deleting a service that bookings still reference.
	ErrInUse = errors.New("service is referenced by bookings")
	// ErrDuplicate is returned when creating a service whose id already exists.
	ErrDuplicate = errors.New("service id already exists")
)

type ServiceRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Service, error)
	GetByID(ctx context.Context, id string) (*models.Service, error)
	Create(ctx context.Context, service *models.Service) error
	Update(ctx context.Context, service *models.Service) error
	Delete(ctx context.Context, id string) error
}

// PostgresServiceRepo implements ServiceRepository on Postgres.
type PostgresServiceRepo struct {
	db *sql.DB
}

func NewPostgresServiceRepo(db *sql.DB) ServiceRepository {
	return &PostgresServiceRepo{db: db}
}

const serviceColumns = `id, name, description, duration_minutes, price_cents, active, created_at, updated_at`

func scanService(row interface{ Scan(dest ...any) error }) (*models.Service, error) {
	var s models.Service
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.PriceCents, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (repo *PostgresServiceRepo) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY price_cents, name`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying services: %w", err)
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("error decoding service: %w", err)
		}
		services = append(services, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("service cursor error: %w", err)
	}
	return services, nil
}

func (repo *PostgresServiceRepo) GetByID(ctx context.Context, id string) (*models.Service, error) {
	s, err := scanService(repo.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching service %s: %w", id, err)
	}
	return s, nil
}

func (repo *PostgresServiceRepo) Create(ctx context.Context, s *models.Service) error {
	err := repo.db.QueryRowContext(ctx, `
		INSERT INTO services (id, name, description, duration_minutes, price_cents, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description, s.DurationMinutes, s.PriceCents, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting service %s: %w", s.ID, err)
	}
	return nil
}

func (repo *PostgresServiceRepo) Update(ctx context.Context, s *models.Service) error {
	err := repo.db.QueryRowContext(ctx, `
		UPDATE services
		SET name = $2, description = $3, duration_minutes = $4, price_cents = $5, active = $6, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description, s.DurationMinutes, s.PriceCents, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error updating service %s: %w", s.ID, err)
	}
	return nil
}

func (repo *PostgresServiceRepo) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return fmt.Errorf("error deleting service %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
