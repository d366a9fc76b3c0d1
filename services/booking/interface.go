package booking

import (
	"context"
	"time"

	"astrobook/models"
)

// AvailabilityReader supplies the classified calendar view of a day.
type AvailabilityReader interface {
	ListBusyAndOpenRanges(ctx context.Context, dayStart, dayEnd time.Time) (models.DayAvailability, error)
}

// SlotCache stores computed slot lists per service and local day.
type SlotCache interface {
	Get(ctx context.Context, serviceID, day string) ([]models.Slot, bool)
	Set(ctx context.Context, serviceID, day string, slots []models.Slot)
	InvalidateDay(ctx context.Context, day string)
}

// ReservationService is the booking flow used by the HTTP handlers and the hold sweeper.
type ReservationService interface {
	Reserve(ctx context.Context, req models.ReservationRequest) (*models.ReservationResult, error)
	Confirm(ctx context.Context, bookingID string, outcome models.PaymentOutcome, actor string) (*models.Booking, error)
	ConfirmFromIntent(ctx context.Context, bookingID string) (*models.Booking, error)
	HandlePaymentEvent(ctx context.Context, event models.PaymentEvent) error
	Cancel(ctx context.Context, bookingID, actor string) (*models.Booking, error)
	CreateManual(ctx context.Context, req models.ManualBookingRequest) (*models.Booking, error)
	Complete(ctx context.Context, bookingID string) (*models.Booking, error)
	RetrySideEffects(ctx context.Context, bookingID string) (*models.Booking, error)
	ExpireHolds(ctx context.Context, now time.Time) (SweepResult, error)
	Get(ctx context.Context, bookingID string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	History(ctx context.Context, bookingID string) ([]models.BookingEvent, error)
}

// SweepResult summarises one run of the hold-expiry sweep.
type SweepResult struct {
	Examined  int `json:"examined"`
	Abandoned int `json:"abandoned"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
}

type nopCache struct{}

func (nopCache) Get(context.Context, string, string) ([]models.Slot, bool) { return nil, false }
func (nopCache) Set(context.Context, string, string, []models.Slot)         {}
func (nopCache) InvalidateDay(context.Context, string)                      {}
