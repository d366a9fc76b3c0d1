package handlers

import (
	"context"
	"time"

	"astrobook/models"
	"astrobook/services/booking"
	"astrobook/utils"
)

type fakeReservations struct {
	reserve     func(models.ReservationRequest) (*models.ReservationResult, error)
	manual      func(models.ManualBookingRequest) (*models.Booking, error)
	confirm     func(id string) (*models.Booking, error)
	event       func(models.PaymentEvent) error
	bookings    map[string]*models.Booking
	lastFilter  models.BookingFilter
	cancelActor string
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{bookings: map[string]*models.Booking{}}
}

func (f *fakeReservations) Reserve(ctx context.Context, req models.ReservationRequest) (*models.ReservationResult, error) {
	return f.reserve(req)
}

func (f *fakeReservations) Confirm(ctx context.Context, id string, outcome models.PaymentOutcome, actor string) (*models.Booking, error) {
	return f.Get(ctx, id)
}

func (f *fakeReservations) ConfirmFromIntent(ctx context.Context, id string) (*models.Booking, error) {
	return f.confirm(id)
}

func (f *fakeReservations) HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error {
	return f.event(ev)
}

func (f *fakeReservations) Cancel(ctx context.Context, id, actor string) (*models.Booking, error) {
	b, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f.cancelActor = actor
	b.Status = models.StatusCancelled
	return b, nil
}

func (f *fakeReservations) CreateManual(ctx context.Context, req models.ManualBookingRequest) (*models.Booking, error) {
	return f.manual(req)
}

func (f *fakeReservations) Complete(ctx context.Context, id string) (*models.Booking, error) {
	b, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusConfirmed {
		return nil, utils.NewInvalidTransitionError(nil)
	}
	b.Status = models.StatusCompleted
	return b, nil
}

func (f *fakeReservations) RetrySideEffects(ctx context.Context, id string) (*models.Booking, error) {
	return f.Get(ctx, id)
}

func (f *fakeReservations) ExpireHolds(ctx context.Context, now time.Time) (booking.SweepResult, error) {
	return booking.SweepResult{}, nil
}

func (f *fakeReservations) Get(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, utils.NewNotFoundError("booking")
	}
	return b, nil
}

func (f *fakeReservations) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	f.lastFilter = filter
	out := []models.Booking{}
	for _, b := range f.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeReservations) History(ctx context.Context, id string) ([]models.BookingEvent, error) {
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	return []models.BookingEvent{{BookingID: id, To: models.StatusPending}}, nil
}

type fakeSlots struct {
	slots       []models.Slot
	err         error
	invalidated []models.TimeRange
}

func (f *fakeSlots) SlotsFor(ctx context.Context, serviceID, date string) ([]models.Slot, error) {
	return f.slots, f.err
}

func (f *fakeSlots) Invalidate(ctx context.Context, r models.TimeRange) {
	f.invalidated = append(f.invalidated, r)
}

type fakeCatalog struct {
	services []models.Service
	err      error
}

func (f *fakeCatalog) ListActive(ctx context.Context) ([]models.Service, error) {
	return f.services, f.err
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]models.Service, error) {
	return f.services, f.err
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*models.Service, error) {
	return nil, utils.NewNotFoundError("service")
}

func (f *fakeCatalog) Create(ctx context.Context, svc models.Service) (*models.Service, error) {
	if svc.Name == "" {
		return nil, utils.NewValidationError("invalid or missing fields: Name")
	}
	return &svc, nil
}

func (f *fakeCatalog) Update(ctx context.Context, id string, svc models.Service) (*models.Service, error) {
	svc.ID = id
	return &svc, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id string) error {
	if id == "in-use" {
		return utils.NewConflictError("service has bookings, deactivate it instead")
	}
	return nil
}

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, email, password string) (*models.AdminSession, error) {
	if password != "secret" {
		return nil, utils.NewUnauthorizedError("invalid email or password")
	}
	return &models.AdminSession{Token: "token-1", ExpiresAt: time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)}, nil
}

func (fakeAuth) Authenticate(token string) (string, error) {
	if token != "token-1" {
		return "", utils.NewUnauthorizedError("invalid or expired token")
	}
	return "admin", nil
}

type fakeBlocks struct {
	from, to time.Time
	created  []models.AvailabilityBlock
	err      error
}

func (f *fakeBlocks) ListBlocks(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error) {
	f.from, f.to = from, to
	return nil, f.err
}

func (f *fakeBlocks) CreateBlock(ctx context.Context, start, end time.Time, label string) (*models.AvailabilityBlock, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := models.AvailabilityBlock{ID: "evt-1", Start: start, End: end, Label: label}
	f.created = append(f.created, b)
	return &b, nil
}

func (f *fakeBlocks) DeleteBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	if id != "evt-1" {
		return nil, utils.NewNotFoundError("availability block")
	}
	return &models.AvailabilityBlock{ID: id, Start: time.Date(2026, 10, 20, 13, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)}, nil
}

type fakeParser struct {
	event *models.PaymentEvent
	err   error
	sig   string
	body  string
}

func (f *fakeParser) ParseWebhook(payload []byte, signature string) (*models.PaymentEvent, error) {
	f.sig, f.body = signature, string(payload)
	return f.event, f.err
}
