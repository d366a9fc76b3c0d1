package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditRepo "astrobook/database/repository/audit"
	bookingRepo "astrobook/database/repository/booking"
	serviceRepo "astrobook/database/repository/service"
	"astrobook/models"
	"astrobook/services/calendar"
	"astrobook/services/meeting"
	"astrobook/services/notification"
	"astrobook/services/payment"
	"astrobook/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of the reservation flow. Calendar, Meetings,
// Notifier and Audit may be nil, in which case that step is skipped.
type Dependencies struct {
	Ledger   bookingRepo.BookingRepository
	Services serviceRepo.ServiceRepository
	Slots    *SlotGenerator
	Payments payment.Processor
	Calendar calendar.Calendar
	Meetings meeting.Provider
	Notifier notification.NotificationService
	Audit    auditRepo.AuditRepository
}

// ReservationCoordinator drives bookings through their status graph.
type ReservationCoordinator struct {
	Dependencies
	settings Settings
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

func NewReservationCoordinator(deps Dependencies, settings Settings, logger *zap.Logger) *ReservationCoordinator {
	return &ReservationCoordinator{
		Dependencies: deps,
		settings:     settings,
		validate:     validator.New(),
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       logger,
	}
}

func (c *ReservationCoordinator) external(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.settings.ExternalTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.settings.ExternalTimeout)
}

func (c *ReservationCoordinator) validateRequest(req models.ReservationRequest) error {
	if err := c.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			return utils.NewValidationError("invalid or missing fields: %s", strings.Join(fields, ", "))
		}
		return utils.NewValidationError("invalid reservation request")
	}
	if req.Start.IsZero() {
		return utils.NewValidationError("start is required")
	}
	if !req.Start.After(c.now()) {
		return utils.NewValidationError("start must be in the future")
	}
	return nil
}

func (c *ReservationCoordinator) loadService(ctx context.Context, id string, requireActive bool) (*models.Service, error) {
	svc, err := c.Services.GetByID(ctx, id)
	if errors.Is(err, serviceRepo.ErrNotFound) {
		return nil, utils.NewNotFoundError("service")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	if requireActive && !svc.Active {
		return nil, utils.NewNotFoundError("service")
	}
	return svc, nil
}

func (c *ReservationCoordinator) load(ctx context.Context, id string) (*models.Booking, error) {
	b, err := c.Ledger.GetByID(ctx, id)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, utils.NewNotFoundError("booking")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("booking ledger", err)
	}
	return b, nil
}

func newBooking(id string, svc *models.Service, req models.ReservationRequest, status models.BookingStatus) *models.Booking {
	return &models.Booking{
		ID:              id,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		ClientName:      strings.TrimSpace(req.Client.Name),
		ClientEmail:     strings.TrimSpace(req.Client.Email),
		StartTime:       req.Start,
		EndTime:         req.Start.Add(svc.Duration()),
		DurationMinutes: svc.DurationMinutes,
		PriceCents:      svc.PriceCents,
		Status:          status,
		Birthdate:       req.Client.Birthdate,
		Birthtime:       req.Client.Birthtime,
		Birthplace:      req.Client.Birthplace,
	}
}

// insert writes a new booking after re-checking the ledger. The exclusion
// constraint decides concurrent inserts for the same time.
func (c *ReservationCoordinator) insert(ctx context.Context, b *models.Booking, actor string) error {
	if err := c.Slots.CheckSlot(ctx, b.StartTime, b.EndTime.Sub(b.StartTime)); err != nil {
		return err
	}
	if err := c.Ledger.Create(ctx, b); err != nil {
		switch {
		case errors.Is(err, bookingRepo.ErrOverlap):
			return utils.NewSlotTakenError(err)
		case errors.Is(err, bookingRepo.ErrUnknownService):
			return utils.NewNotFoundError("service")
		}
		return utils.NewUpstreamError("booking ledger", err)
	}
	c.Slots.Invalidate(ctx, b.Range())
	c.record(ctx, b.ID, "", b.Status, actor, "created")
	return nil
}

// Reserve places a provisional hold and opens a payment intent for it.
func (c *ReservationCoordinator) Reserve(ctx context.Context, req models.ReservationRequest) (*models.ReservationResult, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	svc, err := c.loadService(ctx, req.ServiceID, true)
	if err != nil {
		return nil, err
	}

	b := newBooking(c.newID(), svc, req, models.StatusPending)
	expires := c.now().Add(c.settings.HoldTTL)
	b.HoldExpiresAt = &expires
	b.FreeOfCharge = svc.PriceCents == 0

	if err := c.insert(ctx, b, models.ActorClient); err != nil {
		return nil, err
	}
	log := c.logger.With(zap.String("bookingId", b.ID), zap.String("serviceId", svc.ID))
	log.Info("provisional hold placed", zap.Time("start", b.StartTime), zap.Time("holdExpiresAt", expires))

	if b.FreeOfCharge {
		if _, err := c.Confirm(ctx, b.ID, models.PaymentSucceeded, models.ActorClient); err != nil {
			return nil, err
		}
		return &models.ReservationResult{
			BookingID: b.ID,
			Status:    models.StatusConfirmed,
			State:     models.AttemptConfirmed,
		}, nil
	}

	pctx, cancel := c.external(ctx)
	intent, err := c.Payments.CreatePaymentIntent(pctx, payment.IntentRequest{
		BookingID:    b.ID,
		ServiceID:    svc.ID,
		AmountCents:  b.PriceCents,
		Description:  fmt.Sprintf("%s on %s", svc.Name, b.StartTime.In(c.settings.Location).Format("Jan 2, 2006 3:04 PM")),
		ReceiptEmail: b.ClientEmail,
	})
	cancel()
	if err == nil {
		if err = c.Ledger.SetPaymentIntent(ctx, b.ID, intent.ID); err != nil {
			c.cancelIntent(ctx, intent.ID, log)
		}
	}
	if err != nil {
		log.Error("payment setup failed, releasing hold", zap.Error(err))
		if _, terr := c.transition(ctx, b, models.StatusPaymentFailed, models.ActorClient, "payment setup failed"); terr != nil {
			log.Error("failed to release hold after payment setup failure", zap.Error(terr))
		}
		return nil, utils.NewPaymentSetupError(err)
	}

	b.PaymentIntentID = intent.ID
	return &models.ReservationResult{
		BookingID:           b.ID,
		Status:              b.Status,
		State:               models.AttemptPaymentPending,
		PaymentIntentID:     intent.ID,
		PaymentClientSecret: intent.ClientSecret,
		AmountCents:         b.PriceCents,
		HoldExpiresAt:       b.HoldExpiresAt,
	}, nil
}

// transition applies one status change. changed is false when the booking was
// already in the target status, which makes repeated deliveries harmless.
func (c *ReservationCoordinator) transition(ctx context.Context, b *models.Booking, to models.BookingStatus, actor, reason string) (bool, error) {
	if b.Status == to {
		return false, nil
	}
	if err := models.ValidateTransition(b.Status, to); err != nil {
		return false, utils.NewInvalidTransitionError(err)
	}

	from := b.Status
	err := c.Ledger.UpdateStatus(ctx, b.ID, from, to)
	switch {
	case errors.Is(err, bookingRepo.ErrStatusChanged):
		current, lerr := c.load(ctx, b.ID)
		if lerr != nil {
			return false, lerr
		}
		*b = *current
		if b.Status == to {
			return false, nil
		}
		return false, utils.NewInvalidTransitionError(&models.InvalidTransitionError{From: b.Status, To: to})
	case errors.Is(err, bookingRepo.ErrNotFound):
		return false, utils.NewNotFoundError("booking")
	case err != nil:
		return false, utils.NewUpstreamError("booking ledger", err)
	}

	b.Status = to
	b.HoldExpiresAt = nil
	if !to.HoldsTime() {
		c.Slots.Invalidate(ctx, b.Range())
	}
	c.record(ctx, b.ID, from, to, actor, reason)
	c.logger.Info("booking status changed",
		zap.String("bookingId", b.ID), zap.String("from", string(from)), zap.String("to", string(to)), zap.String("actor", actor))
	return true, nil
}

func (c *ReservationCoordinator) record(ctx context.Context, bookingID string, from, to models.BookingStatus, actor, reason string) {
	if c.Audit == nil {
		return
	}
	err := c.Audit.Record(ctx, models.BookingEvent{
		BookingID: bookingID,
		From:      from,
		To:        to,
		Actor:     actor,
		Reason:    reason,
		At:        c.now().UTC(),
	})
	if err != nil {
		c.logger.Warn("failed to record booking event", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

// Confirm applies a payment outcome. Success confirms the booking and runs the
// best-effort side effects; failure releases the hold.
func (c *ReservationCoordinator) Confirm(ctx context.Context, bookingID string, outcome models.PaymentOutcome, actor string) (*models.Booking, error) {
	b, err := c.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case models.PaymentSucceeded:
		if b.Status == models.StatusCancelled || b.Status == models.StatusPaymentFailed {
			c.logger.Error("payment succeeded for a booking that no longer holds its slot",
				zap.String("bookingId", b.ID), zap.String("status", string(b.Status)))
			c.alertOperator(ctx, *b, map[string]error{
				"payment": fmt.Errorf("payment succeeded after the booking became %s; refund or rebook manually", b.Status),
			})
			return b, utils.NewInvalidTransitionError(&models.InvalidTransitionError{From: b.Status, To: models.StatusConfirmed})
		}
		changed, err := c.transition(ctx, b, models.StatusConfirmed, actor, "payment succeeded")
		if err != nil {
			return nil, err
		}
		if changed {
			if perr := c.runSideEffects(ctx, b, true); perr != nil {
				c.alertOperator(ctx, *b, perr.Failures)
			}
		}
		return b, nil

	case models.PaymentFailed:
		changed, err := c.transition(ctx, b, models.StatusPaymentFailed, actor, "payment failed")
		if err != nil {
			return nil, err
		}
		// The slot is released, so the intent must not be payable any more.
		if changed && b.PaymentIntentID != "" {
			c.cancelIntent(ctx, b.PaymentIntentID, c.logger.With(zap.String("bookingId", b.ID)))
		}
		return b, nil
	}
	return nil, utils.NewValidationError("unknown payment outcome %q", outcome)
}

// ConfirmFromIntent reads the outcome from the payment processor. Intents that
// are still in progress leave the booking pending.
func (c *ReservationCoordinator) ConfirmFromIntent(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := c.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusPending {
		return b, nil
	}
	if b.PaymentIntentID == "" {
		return b, nil
	}

	pctx, cancel := c.external(ctx)
	intent, err := c.Payments.GetPaymentIntent(pctx, b.PaymentIntentID)
	cancel()
	if err != nil {
		return nil, utils.NewUpstreamError("payment processor", err)
	}

	switch {
	case intent.Status == models.IntentSucceeded:
		return c.Confirm(ctx, b.ID, models.PaymentSucceeded, models.ActorClient)
	case intent.Status == models.IntentCanceled,
		intent.Status == models.IntentRequiresPaymentMethod && intent.LastPaymentError != "":
		b, err := c.Confirm(ctx, b.ID, models.PaymentFailed, models.ActorClient)
		if err != nil {
			return nil, err
		}
		reason := intent.LastPaymentError
		if reason == "" {
			reason = "payment was not completed"
		}
		return b, utils.NewPaymentDeclinedError(reason)
	}
	return b, nil
}

// HandlePaymentEvent applies a verified webhook event.
func (c *ReservationCoordinator) HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error {
	log := c.logger.With(zap.String("eventId", ev.ID), zap.String("paymentIntentId", ev.IntentID))

	var (
		b   *models.Booking
		err error
	)
	if ev.BookingID != "" {
		b, err = c.Ledger.GetByID(ctx, ev.BookingID)
	} else {
		err = bookingRepo.ErrNotFound
	}
	if errors.Is(err, bookingRepo.ErrNotFound) && ev.IntentID != "" {
		b, err = c.Ledger.GetByPaymentIntent(ctx, ev.IntentID)
	}
	if errors.Is(err, bookingRepo.ErrNotFound) {
		log.Warn("payment event for unknown booking")
		return nil
	}
	if err != nil {
		return utils.NewUpstreamError("booking ledger", err)
	}
	if b.PaymentIntentID != "" && ev.IntentID != "" && b.PaymentIntentID != ev.IntentID {
		log.Warn("payment event intent does not match booking", zap.String("bookingId", b.ID))
		return nil
	}

	_, err = c.Confirm(ctx, b.ID, ev.Outcome, models.ActorWebhook)
	if utils.IsKind(err, utils.KindInvalidTransition) {
		log.Warn("payment event ignored", zap.String("bookingId", b.ID), zap.Error(err))
		return nil
	}
	return err
}

func (c *ReservationCoordinator) cancelIntent(ctx context.Context, intentID string, log *zap.Logger) {
	pctx, cancel := c.external(ctx)
	defer cancel()
	if err := c.Payments.CancelPaymentIntent(pctx, intentID); err != nil {
		log.Warn("failed to cancel payment intent", zap.String("paymentIntentId", intentID), zap.Error(err))
	}
}

// Cancel releases a booking. No refund is issued.
func (c *ReservationCoordinator) Cancel(ctx context.Context, bookingID, actor string) (*models.Booking, error) {
	b, err := c.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	wasPending := b.Status == models.StatusPending
	wasConfirmed := b.Status == models.StatusConfirmed

	changed, err := c.transition(ctx, b, models.StatusCancelled, actor, "cancelled")
	if err != nil || !changed {
		return b, err
	}
	log := c.logger.With(zap.String("bookingId", b.ID))

	if wasPending && b.PaymentIntentID != "" {
		c.cancelIntent(ctx, b.PaymentIntentID, log)
	}
	if b.CalendarEventID != "" && c.Calendar != nil {
		cctx, cancel := c.external(ctx)
		err := c.Calendar.DeleteEvent(cctx, b.CalendarEventID)
		cancel()
		if err != nil {
			log.Warn("failed to delete calendar event for cancelled booking", zap.Error(err))
		} else if err := c.Ledger.SetCalendarEvent(ctx, b.ID, ""); err == nil {
			b.CalendarEventID = ""
		}
	}
	if wasConfirmed && c.Notifier != nil {
		nctx, cancel := c.external(ctx)
		if err := c.Notifier.SendBookingCancellation(nctx, *b); err != nil {
			log.Warn("failed to send cancellation email", zap.Error(err))
		}
		cancel()
	}
	return b, nil
}

// CreateManual books a slot on behalf of a client without online payment.
// A confirmed booking has either a captured payment or the free-of-charge flag,
// so paid services are only accepted when the request waives the price.
func (c *ReservationCoordinator) CreateManual(ctx context.Context, req models.ManualBookingRequest) (*models.Booking, error) {
	if err := c.validateRequest(req.ReservationRequest); err != nil {
		return nil, err
	}
	svc, err := c.loadService(ctx, req.ServiceID, false)
	if err != nil {
		return nil, err
	}
	if svc.PriceCents > 0 && !req.FreeOfCharge {
		return nil, utils.NewValidationError("service %q is paid: manual bookings must set freeOfCharge, paid sessions go through online reservation", svc.ID)
	}

	b := newBooking(c.newID(), svc, req.ReservationRequest, models.StatusConfirmed)
	b.FreeOfCharge = true
	b.PriceCents = 0
	if err := c.insert(ctx, b, models.ActorAdmin); err != nil {
		return nil, err
	}
	c.logger.Info("manual booking created", zap.String("bookingId", b.ID), zap.Bool("freeOfCharge", b.FreeOfCharge))

	if perr := c.runSideEffects(ctx, b, true); perr != nil {
		c.alertOperator(ctx, *b, perr.Failures)
		return b, perr
	}
	return b, nil
}

// Complete marks a confirmed session as held.
func (c *ReservationCoordinator) Complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := c.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := c.transition(ctx, b, models.StatusCompleted, models.ActorAdmin, "session held"); err != nil {
		return nil, err
	}
	return b, nil
}

// RetrySideEffects re-runs the confirmation side effects of a confirmed booking.
// Steps that already succeeded are skipped; the confirmation email is always re-sent.
func (c *ReservationCoordinator) RetrySideEffects(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := c.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusConfirmed {
		return nil, utils.NewInvalidTransitionError(fmt.Errorf("booking %s is %s, only confirmed bookings can be resent", b.ID, b.Status))
	}
	if perr := c.runSideEffects(ctx, b, true); perr != nil {
		return b, perr
	}
	return b, nil
}

func (c *ReservationCoordinator) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	return c.load(ctx, bookingID)
}

func (c *ReservationCoordinator) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	bookings, err := c.Ledger.List(ctx, filter)
	if err != nil {
		return nil, utils.NewUpstreamError("booking ledger", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

func (c *ReservationCoordinator) History(ctx context.Context, bookingID string) ([]models.BookingEvent, error) {
	if _, err := c.load(ctx, bookingID); err != nil {
		return nil, err
	}
	if c.Audit == nil {
		return []models.BookingEvent{}, nil
	}
	events, err := c.Audit.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, utils.NewUpstreamError("audit trail", err)
	}
	return events, nil
}
