package bookingRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"astrobook/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"

	defaultListLimit = 200
	expiredHoldBatch = 100
)

const bookingColumns = `id, service_id, service_name, client_name, client_email, start_time, end_time,
	duration_minutes, price_cents, status, free_of_charge,
	COALESCE(payment_intent_id, ''), COALESCE(calendar_event_id, ''),
	COALESCE(meeting_id, ''), COALESCE(meeting_link, ''),
	COALESCE(birthdate, ''), COALESCE(birthtime, ''), COALESCE(birthplace, ''),
	hold_expires_at, created_at, updated_at`

// PostgresBookingRepo implements BookingRepository on Postgres.
type PostgresBookingRepo struct {
	db *sql.DB
}

func NewPostgresBookingRepo(db *sql.DB) BookingRepository {
	return &PostgresBookingRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b      models.Booking
		status string
		hold   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.ServiceID, &b.ServiceName, &b.ClientName, &b.ClientEmail,
		&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.PriceCents, &status, &b.FreeOfCharge,
		&b.PaymentIntentID, &b.CalendarEventID, &b.MeetingID, &b.MeetingLink,
		&b.Birthdate, &b.Birthtime, &b.Birthplace, &hold, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	if hold.Valid {
		t := hold.Time
		b.HoldExpiresAt = &t
	}
	return &b, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return ErrOverlap
		case pgForeignKeyViolation:
			return ErrUnknownService
		}
	}
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (repo *PostgresBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	if !b.Range().IsValid() {
		return fmt.Errorf("booking %s has an empty time range", b.ID)
	}
	var hold any
	if b.HoldExpiresAt != nil {
		hold = *b.HoldExpiresAt
	}
	err := repo.db.QueryRowContext(ctx, `
		INSERT INTO bookings (id, service_id, service_name, client_name, client_email,
			start_time, end_time, duration_minutes, price_cents, status, free_of_charge,
			payment_intent_id, birthdate, birthtime, birthplace, hold_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`,
		b.ID, b.ServiceID, b.ServiceName, b.ClientName, b.ClientEmail,
		b.StartTime, b.EndTime, b.DurationMinutes, b.PriceCents, string(b.Status), b.FreeOfCharge,
		nullIfEmpty(b.PaymentIntentID), nullIfEmpty(b.Birthdate), nullIfEmpty(b.Birthtime),
		nullIfEmpty(b.Birthplace), hold,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("error inserting booking %s: %w", b.ID, err)
	}
	return nil
}

func (repo *PostgresBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return b, nil
}

func (repo *PostgresBookingRepo) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Booking, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE payment_intent_id = $1`, intentID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking for intent %s: %w", intentID, err)
	}
	return b, nil
}

func (repo *PostgresBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ID != "" {
		add("id = $%d", filter.ID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Day != nil {
		add("start_time < $%d", filter.Day.End)
		add("end_time > $%d", filter.Day.Start)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY start_time LIMIT $%d`, len(args))

	return repo.queryBookings(ctx, query, args...)
}

func (repo *PostgresBookingRepo) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking cursor error: %w", err)
	}
	return bookings, nil
}

func (repo *PostgresBookingRepo) ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.TimeRange, error) {
	rows, err := repo.db.QueryContext(ctx, `
		SELECT start_time, end_time FROM bookings
		WHERE status IN ('pending', 'confirmed', 'completed')
		  AND start_time < $2 AND end_time > $1
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying active bookings: %w", err)
	}
	defer rows.Close()

	var ranges []models.TimeRange
	for rows.Next() {
		var r models.TimeRange
		if err := rows.Scan(&r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("error decoding active booking: %w", err)
		}
		ranges = append(ranges, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active booking cursor error: %w", err)
	}
	return ranges, nil
}

func (repo *PostgresBookingRepo) ListExpiredHolds(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return repo.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at <= $1
		ORDER BY hold_expires_at LIMIT $2`, before, expiredHoldBatch)
}

func (repo *PostgresBookingRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE bookings SET status = $3, hold_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("error updating booking %s status: %w", id, mapWriteError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	return repo.missingOrChanged(ctx, id)
}

// missingOrChanged distinguishes a conditional update that matched nothing.
func (repo *PostgresBookingRepo) missingOrChanged(ctx context.Context, id string) error {
	var exists bool
	err := repo.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking booking %s: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusChanged
}

func (repo *PostgresBookingRepo) setColumns(ctx context.Context, id, assignments string, args ...any) error {
	args = append([]any{id}, args...)
	res, err := repo.db.ExecContext(ctx, `UPDATE bookings SET `+assignments+`, updated_at = now() WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *PostgresBookingRepo) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	return repo.setColumns(ctx, id, `payment_intent_id = $2`, intentID)
}

func (repo *PostgresBookingRepo) SetCalendarEvent(ctx context.Context, id, eventID string) error {
	return repo.setColumns(ctx, id, `calendar_event_id = $2`, nullIfEmpty(eventID))
}

func (repo *PostgresBookingRepo) SetMeeting(ctx context.Context, id, meetingID, joinURL string) error {
	return repo.setColumns(ctx, id, `meeting_id = $2, meeting_link = $3`, nullIfEmpty(meetingID), nullIfEmpty(joinURL))
}
