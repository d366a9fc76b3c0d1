package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	bookingRepo "astrobook/database/repository/booking"
	serviceRepo "astrobook/database/repository/service"
	"astrobook/models"
	"astrobook/services/meeting"
	"astrobook/services/payment"

	"go.uber.org/zap"
)

// memLedger enforces the same no-overlap rule as the Postgres exclusion constraint.
type memLedger struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	listErr  error
	setErr   error
}

func newMemLedger() *memLedger {
	return &memLedger{bookings: map[string]*models.Booking{}}
}

func (l *memLedger) Create(ctx context.Context, b *models.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.bookings {
		if existing.Status.HoldsTime() && models.Overlaps(existing.Range(), b.Range()) {
			return bookingRepo.ErrOverlap
		}
	}
	cp := *b
	l.bookings[b.ID] = &cp
	return nil
}

func (l *memLedger) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (l *memLedger) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bookings {
		if b.PaymentIntentID == intentID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (l *memLedger) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Booking
	for _, b := range l.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (l *memLedger) ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.TimeRange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	window := models.TimeRange{Start: from, End: to}
	var out []models.TimeRange
	for _, b := range l.bookings {
		if b.Status.HoldsTime() && models.Overlaps(b.Range(), window) {
			out = append(out, b.Range())
		}
	}
	return out, nil
}

func (l *memLedger) ListExpiredHolds(ctx context.Context, before time.Time) ([]models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Booking
	for _, b := range l.bookings {
		if b.Status == models.StatusPending && b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (l *memLedger) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	if b.Status != from {
		return bookingRepo.ErrStatusChanged
	}
	b.Status = to
	b.HoldExpiresAt = nil
	return nil
}

func (l *memLedger) update(id string, fn func(b *models.Booking)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.setErr != nil {
		return l.setErr
	}
	b, ok := l.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	fn(b)
	return nil
}

func (l *memLedger) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	return l.update(id, func(b *models.Booking) { b.PaymentIntentID = intentID })
}

func (l *memLedger) SetCalendarEvent(ctx context.Context, id, eventID string) error {
	return l.update(id, func(b *models.Booking) { b.CalendarEventID = eventID })
}

func (l *memLedger) SetMeeting(ctx context.Context, id, meetingID, joinURL string) error {
	return l.update(id, func(b *models.Booking) { b.MeetingID, b.MeetingLink = meetingID, joinURL })
}

func (l *memLedger) status(t *testing.T, id string) models.BookingStatus {
	t.Helper()
	b, err := l.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("booking %s: %v", id, err)
	}
	return b.Status
}

type fakeServices struct {
	services map[string]models.Service
	err      error
}

func (f *fakeServices) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	var out []models.Service
	for _, s := range f.services {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServices) GetByID(ctx context.Context, id string) (*models.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.services[id]
	if !ok {
		return nil, serviceRepo.ErrNotFound
	}
	return &s, nil
}

func (f *fakeServices) Create(ctx context.Context, s *models.Service) error { return nil }
func (f *fakeServices) Update(ctx context.Context, s *models.Service) error { return nil }
func (f *fakeServices) Delete(ctx context.Context, id string) error         { return nil }

type fakeAvailability struct {
	day   models.DayAvailability
	err   error
	calls int
}

func (f *fakeAvailability) ListBusyAndOpenRanges(ctx context.Context, dayStart, dayEnd time.Time) (models.DayAvailability, error) {
	f.calls++
	return f.day, f.err
}

type fakePayments struct {
	mu        sync.Mutex
	createErr error
	getErr    error
	created   []payment.IntentRequest
	cancelled []string
	status    map[string]models.PaymentIntent
}

func newFakePayments() *fakePayments {
	return &fakePayments{status: map[string]models.PaymentIntent{}}
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	pi := models.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", len(f.created)),
		ClientSecret: fmt.Sprintf("pi_%d_secret", len(f.created)),
		Status:       models.IntentRequiresPaymentMethod,
		AmountCents:  req.AmountCents,
		Metadata:     map[string]string{payment.MetadataBookingID: req.BookingID},
	}
	f.status[pi.ID] = pi
	return &pi, nil
}

func (f *fakePayments) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	pi, ok := f.status[id]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return &pi, nil
}

func (f *fakePayments) setStatus(id string, status models.PaymentIntentStatus, lastErr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pi := f.status[id]
	pi.Status = status
	pi.LastPaymentError = lastErr
	f.status[id] = pi
}

func (f *fakePayments) CancelPaymentIntent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakePayments) ParseWebhook(payload []byte, signature string) (*models.PaymentEvent, error) {
	return nil, nil
}

type fakeMeetings struct {
	err   error
	calls int
}

func (f *fakeMeetings) CreateMeeting(ctx context.Context, req meeting.MeetingRequest) (*models.Meeting, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Meeting{ID: fmt.Sprintf("m%d", f.calls), JoinURL: fmt.Sprintf("https://zoom.us/j/%d", f.calls)}, nil
}

type fakeCalendar struct {
	err     error
	created []models.CalendarEvent
	deleted []string
}

func (f *fakeCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error) {
	return nil, nil
}

func (f *fakeCalendar) GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, ev)
	return fmt.Sprintf("evt-%d", len(f.created)), nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	err           error
	confirmations []models.Booking
	cancellations []models.Booking
	alerts        []map[string]error
}

func (f *fakeNotifier) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirmations = append(f.confirmations, b)
	return nil
}

func (f *fakeNotifier) SendBookingCancellation(ctx context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancellations = append(f.cancellations, b)
	return nil
}

func (f *fakeNotifier) NotifyOperator(ctx context.Context, b models.Booking, failures map[string]error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, failures)
	return nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (f *fakeAudit) Record(ctx context.Context, ev models.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeAudit) ListByBooking(ctx context.Context, id string) ([]models.BookingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingEvent
	for _, ev := range f.events {
		if ev.BookingID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]models.Slot
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]models.Slot{}}
}

func (m *memCache) Get(ctx context.Context, serviceID, day string) ([]models.Slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[day+"/"+serviceID]
	return s, ok
}

func (m *memCache) Set(ctx context.Context, serviceID, day string, slots []models.Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[day+"/"+serviceID] = slots
}

func (m *memCache) InvalidateDay(ctx context.Context, day string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(day) && k[:len(day)] == day {
			delete(m.entries, k)
		}
	}
}

var newYork = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// local returns a wall-clock time on 2026-10-20 in the practitioner timezone.
func local(hour, min int) time.Time {
	return time.Date(2026, 10, 20, hour, min, 0, 0, newYork)
}

func testSettings() Settings {
	return Settings{
		Location:        newYork,
		Step:            15 * time.Minute,
		Buffer:          15 * time.Minute,
		HoldTTL:         30 * time.Minute,
		ExternalTimeout: time.Second,
	}
}

type harness struct {
	coord    *ReservationCoordinator
	ledger   *memLedger
	services *fakeServices
	payments *fakePayments
	meetings *fakeMeetings
	calendar *fakeCalendar
	notifier *fakeNotifier
	audit    *fakeAudit
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ledger: newMemLedger(),
		services: &fakeServices{services: map[string]models.Service{
			"natal-chart": {ID: "natal-chart", Name: "Natal Chart Reading", DurationMinutes: 60, PriceCents: 12000, Active: true},
			"free-intro":  {ID: "free-intro", Name: "Intro Call", DurationMinutes: 15, PriceCents: 0, Active: true},
			"retired":     {ID: "retired", Name: "Retired", DurationMinutes: 30, PriceCents: 1000, Active: false},
		}},
		payments: newFakePayments(),
		meetings: &fakeMeetings{},
		calendar: &fakeCalendar{},
		notifier: &fakeNotifier{},
		audit:    &fakeAudit{},
		now:      time.Date(2026, 10, 14, 10, 0, 0, 0, newYork),
	}
	settings := testSettings()
	gen := NewSlotGenerator(&fakeAvailability{}, h.ledger, h.services, nil, settings, zap.NewNop())
	gen.now = func() time.Time { return h.now }

	h.coord = NewReservationCoordinator(Dependencies{
		Ledger:   h.ledger,
		Services: h.services,
		Slots:    gen,
		Payments: h.payments,
		Calendar: h.calendar,
		Meetings: h.meetings,
		Notifier: h.notifier,
		Audit:    h.audit,
	}, settings, zap.NewNop())
	h.coord.now = func() time.Time { return h.now }
	return h
}

func reservation(serviceID string, start time.Time) models.ReservationRequest {
	return models.ReservationRequest{
		ServiceID: serviceID,
		Start:     start,
		Client: models.Client{
			Name:       "Ada Lovelace",
			Email:      "ada@example.com",
			Birthdate:  "1815-12-10",
			Birthtime:  "04:30",
			Birthplace: "London",
		},
	}
}
