package bookingRepo

import (
	"context"
	"errors"
	"time"

	"astrobook/models"
)

var (
	ErrNotFound       = errors.New("booking not found")
	ErrOverlap        = errors.New("booking overlaps an existing booking")
	ErrStatusChanged  = errors.New("booking status changed concurrently")
	ErrUnknownService = errors.New("booking references an unknown service")
)

// BookingRepository is the booking ledger.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	// ListActiveBetween returns the intervals of bookings that still hold time and overlap [from, to).
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.TimeRange, error)
	ListExpiredHolds(ctx context.Context, before time.Time) ([]models.Booking, error)
	// UpdateStatus moves a booking from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error
	SetPaymentIntent(ctx context.Context, id, intentID string) error
	SetCalendarEvent(ctx context.Context, id, eventID string) error
	SetMeeting(ctx context.Context, id, meetingID, joinURL string) error
}
