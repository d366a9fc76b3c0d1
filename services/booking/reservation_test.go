package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"astrobook/models"
	"astrobook/utils"
)

func reserve(t *testing.T, h *harness, serviceID string, start time.Time) *models.ReservationResult {
	t.Helper()
	res, err := h.coord.Reserve(context.Background(), reservation(serviceID, start))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	return res
}

func TestReservePlacesHoldAndOpensIntent(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	if res.State != models.AttemptPaymentPending || res.Status != models.StatusPending {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.PaymentClientSecret == "" || res.PaymentIntentID == "" {
		t.Fatalf("expected intent details, got %+v", res)
	}
	if res.HoldExpiresAt == nil || !res.HoldExpiresAt.Equal(h.now.Add(30*time.Minute)) {
		t.Fatalf("expected hold to expire after the TTL, got %v", res.HoldExpiresAt)
	}

	b, err := h.ledger.GetByID(context.Background(), res.BookingID)
	if err != nil {
		t.Fatalf("booking not stored: %v", err)
	}
	if b.PaymentIntentID != res.PaymentIntentID || b.PriceCents != 12000 || !b.EndTime.Equal(local(11, 0)) {
		t.Fatalf("unexpected stored booking %+v", b)
	}
	if len(h.payments.created) != 1 || h.payments.created[0].AmountCents != 12000 || h.payments.created[0].BookingID != b.ID {
		t.Fatalf("unexpected intent requests %+v", h.payments.created)
	}
	if len(h.audit.events) != 1 || h.audit.events[0].To != models.StatusPending {
		t.Fatalf("expected creation audit event, got %+v", h.audit.events)
	}
}

func TestReserveValidatesBeforeExternalCalls(t *testing.T) {
	h := newHarness(t)
	cases := map[string]func(r *models.ReservationRequest){
		"missing email": func(r *models.ReservationRequest) { r.Client.Email = "" },
		"bad email":     func(r *models.ReservationRequest) { r.Client.Email = "not-an-email" },
		"missing name":  func(r *models.ReservationRequest) { r.Client.Name = "" },
		"bad birthdate": func(r *models.ReservationRequest) { r.Client.Birthdate = "10/12/1815" },
		"past start":    func(r *models.ReservationRequest) { r.Start = h.now.Add(-time.Hour) },
		"zero start":    func(r *models.ReservationRequest) { r.Start = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := reservation("natal-chart", local(10, 0))
			mutate(&req)
			if _, err := h.coord.Reserve(context.Background(), req); !utils.IsKind(err, utils.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(h.payments.created) != 0 || len(h.ledger.bookings) != 0 {
		t.Fatalf("validation failures must not touch the ledger or processor")
	}
}

func TestReserveUnknownOrInactiveService(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"nope", "retired"} {
		if _, err := h.coord.Reserve(context.Background(), reservation(id, local(10, 0))); !utils.IsKind(err, utils.KindNotFound) {
			t.Fatalf("%s: expected not found, got %v", id, err)
		}
	}
}

func TestReserveRejectsTakenSlotIncludingBuffer(t *testing.T) {
	h := newHarness(t)
	reserve(t, h, "natal-chart", local(10, 0))

	if _, err := h.coord.Reserve(context.Background(), reservation("natal-chart", local(10, 30))); !utils.IsKind(err, utils.KindSlotNoLongerAvailable) {
		t.Fatalf("expected overlapping slot to be rejected, got %v", err)
	}
	// 09:00 plus a 15 minute buffer runs into the 10:00 session.
	if _, err := h.coord.Reserve(context.Background(), reservation("natal-chart", local(9, 0))); !utils.IsKind(err, utils.KindSlotNoLongerAvailable) {
		t.Fatalf("expected buffer conflict to be rejected, got %v", err)
	}
	reserve(t, h, "natal-chart", local(11, 0))
	if len(h.payments.created) != 2 {
		t.Fatalf("rejected attempts must not open intents, got %d", len(h.payments.created))
	}
}

func TestReservePaymentSetupFailureReleasesHold(t *testing.T) {
	h := newHarness(t)
	h.payments.createErr = errors.New("stripe: connection refused")

	_, err := h.coord.Reserve(context.Background(), reservation("natal-chart", local(10, 0)))
	if !utils.IsKind(err, utils.KindPaymentSetupFailed) {
		t.Fatalf("expected payment setup failure, got %v", err)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || !appErr.Retryable {
		t.Fatalf("payment setup failures should be retryable, got %v", err)
	}
	for id := range h.ledger.bookings {
		if st := h.ledger.status(t, id); st != models.StatusPaymentFailed {
			t.Fatalf("hold should be released, got %s", st)
		}
	}

	h.payments.createErr = nil
	reserve(t, h, "natal-chart", local(10, 0))
}

func TestReserveSavesIntentOrCancelsIt(t *testing.T) {
	h := newHarness(t)
	h.ledger.setErr = errors.New("write timeout")

	if _, err := h.coord.Reserve(context.Background(), reservation("natal-chart", local(10, 0))); !utils.IsKind(err, utils.KindPaymentSetupFailed) {
		t.Fatalf("expected payment setup failure, got %v", err)
	}
	if len(h.payments.cancelled) != 1 || h.payments.cancelled[0] != "pi_1" {
		t.Fatalf("unsaved intent should be cancelled, got %v", h.payments.cancelled)
	}
}

func TestConcurrentReservationsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	const attempts = 12

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		taken   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.coord.Reserve(context.Background(), reservation("natal-chart", local(14, 0)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case utils.IsKind(err, utils.KindSlotNoLongerAvailable):
				taken++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if success != 1 || taken != attempts-1 {
		t.Fatalf("expected exactly one winner, got success=%d taken=%d", success, taken)
	}
}

func TestConfirmRunsSideEffects(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	b, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorClient)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if b.Status != models.StatusConfirmed || b.MeetingLink != "https://zoom.us/j/1" || b.CalendarEventID != "evt-1" {
		t.Fatalf("unexpected booking after confirm %+v", b)
	}
	stored, _ := h.ledger.GetByID(context.Background(), b.ID)
	if stored.HoldExpiresAt != nil || stored.MeetingID != "m1" || stored.CalendarEventID != "evt-1" {
		t.Fatalf("side effects not persisted %+v", stored)
	}
	if len(h.notifier.confirmations) != 1 || h.notifier.confirmations[0].MeetingLink == "" {
		t.Fatalf("confirmation email should carry the join link, got %+v", h.notifier.confirmations)
	}
	if len(h.calendar.created) != 1 {
		t.Fatalf("expected one calendar event, got %d", len(h.calendar.created))
	}
	ev := h.calendar.created[0]
	if !ev.Start.Equal(local(10, 0)) || !ev.End.Equal(local(11, 0)) {
		t.Fatalf("calendar event has wrong times %+v", ev)
	}
	last := h.audit.events[len(h.audit.events)-1]
	if last.From != models.StatusPending || last.To != models.StatusConfirmed || last.Actor != models.ActorClient {
		t.Fatalf("unexpected audit event %+v", last)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	for i := 0; i < 3; i++ {
		actor := models.ActorClient
		if i%2 == 1 {
			actor = models.ActorWebhook
		}
		if _, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, actor); err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}
	if h.meetings.calls != 1 || len(h.calendar.created) != 1 || len(h.notifier.confirmations) != 1 {
		t.Fatalf("side effects ran more than once: meetings=%d events=%d emails=%d",
			h.meetings.calls, len(h.calendar.created), len(h.notifier.confirmations))
	}
}

func TestConfirmPartialFailureAlertsOperator(t *testing.T) {
	h := newHarness(t)
	h.meetings.err = errors.New("zoom: 500")
	res := reserve(t, h, "natal-chart", local(10, 0))

	b, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorWebhook)
	if err != nil {
		t.Fatalf("a paid booking stays confirmed when side effects fail, got %v", err)
	}
	if b.Status != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", b.Status)
	}
	if len(h.notifier.alerts) != 1 || h.notifier.alerts[0][stepMeeting] == nil {
		t.Fatalf("operator should be told about the meeting failure, got %+v", h.notifier.alerts)
	}
	if len(h.calendar.created) != 1 || len(h.notifier.confirmations) != 1 {
		t.Fatalf("later steps must still run")
	}

	h.meetings.err = nil
	b, err = h.coord.RetrySideEffects(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if b.MeetingLink == "" || len(h.calendar.created) != 1 || len(h.notifier.confirmations) != 2 {
		t.Fatalf("retry should only add the meeting and re-send email, got %+v", b)
	}
}

func TestConfirmFailureReleasesSlot(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	b, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentFailed, models.ActorWebhook)
	if err != nil {
		t.Fatalf("confirm failure: %v", err)
	}
	if b.Status != models.StatusPaymentFailed {
		t.Fatalf("expected payment_failed, got %s", b.Status)
	}
	if len(h.payments.cancelled) != 1 || h.payments.cancelled[0] != res.PaymentIntentID {
		t.Fatalf("intent of a released hold should be cancelled, got %v", h.payments.cancelled)
	}
	reserve(t, h, "natal-chart", local(10, 0))
}

func TestLateSuccessAfterCancelAlertsOperator(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))
	if _, err := h.coord.Cancel(context.Background(), res.BookingID, models.ActorAdmin); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorWebhook)
	if !utils.IsKind(err, utils.KindInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if len(h.notifier.alerts) != 1 {
		t.Fatalf("operator should be alerted about a payment without a slot")
	}
}

func TestConfirmFromIntent(t *testing.T) {
	t.Run("succeeded", func(t *testing.T) {
		h := newHarness(t)
		res := reserve(t, h, "natal-chart", local(10, 0))
		h.payments.setStatus(res.PaymentIntentID, models.IntentSucceeded, "")

		b, err := h.coord.ConfirmFromIntent(context.Background(), res.BookingID)
		if err != nil || b.Status != models.StatusConfirmed {
			t.Fatalf("expected confirmed, got %v err=%v", b, err)
		}
	})

	t.Run("declined", func(t *testing.T) {
		h := newHarness(t)
		res := reserve(t, h, "natal-chart", local(10, 0))
		h.payments.setStatus(res.PaymentIntentID, models.IntentRequiresPaymentMethod, "Your card was declined.")

		b, err := h.coord.ConfirmFromIntent(context.Background(), res.BookingID)
		if !utils.IsKind(err, utils.KindPaymentDeclined) {
			t.Fatalf("expected payment declined, got %v", err)
		}
		if b == nil || b.Status != models.StatusPaymentFailed {
			t.Fatalf("declined payment should release the hold, got %+v", b)
		}
	})

	t.Run("processing", func(t *testing.T) {
		h := newHarness(t)
		res := reserve(t, h, "natal-chart", local(10, 0))
		h.payments.setStatus(res.PaymentIntentID, models.IntentProcessing, "")

		b, err := h.coord.ConfirmFromIntent(context.Background(), res.BookingID)
		if err != nil || b.Status != models.StatusPending {
			t.Fatalf("expected booking to stay pending, got %v err=%v", b, err)
		}
	})

	t.Run("processor down", func(t *testing.T) {
		h := newHarness(t)
		res := reserve(t, h, "natal-chart", local(10, 0))
		h.payments.getErr = errors.New("timeout")

		if _, err := h.coord.ConfirmFromIntent(context.Background(), res.BookingID); !utils.IsKind(err, utils.KindUpstreamUnavailable) {
			t.Fatalf("expected upstream error, got %v", err)
		}
		if st := h.ledger.status(t, res.BookingID); st != models.StatusPending {
			t.Fatalf("booking should stay pending, got %s", st)
		}
	})
}

func TestHandlePaymentEvent(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	// No booking id in metadata, found by intent.
	err := h.coord.HandlePaymentEvent(context.Background(), models.PaymentEvent{
		ID: "evt_1", Outcome: models.PaymentSucceeded, IntentID: res.PaymentIntentID,
	})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if st := h.ledger.status(t, res.BookingID); st != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", st)
	}

	// A duplicate failure delivery after success is ignored.
	err = h.coord.HandlePaymentEvent(context.Background(), models.PaymentEvent{
		ID: "evt_2", Outcome: models.PaymentFailed, IntentID: res.PaymentIntentID, BookingID: res.BookingID,
	})
	if err != nil {
		t.Fatalf("out-of-order event should be ignored, got %v", err)
	}
	if st := h.ledger.status(t, res.BookingID); st != models.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", st)
	}

	if err := h.coord.HandlePaymentEvent(context.Background(), models.PaymentEvent{ID: "evt_3", Outcome: models.PaymentSucceeded, IntentID: "pi_unknown"}); err != nil {
		t.Fatalf("unknown bookings are acknowledged, got %v", err)
	}
}

func TestHandlePaymentEventIntentMismatch(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	err := h.coord.HandlePaymentEvent(context.Background(), models.PaymentEvent{
		ID: "evt_1", Outcome: models.PaymentSucceeded, IntentID: "pi_other", BookingID: res.BookingID,
	})
	if err != nil {
		t.Fatalf("expected mismatch to be acknowledged, got %v", err)
	}
	if st := h.ledger.status(t, res.BookingID); st != models.StatusPending {
		t.Fatalf("mismatched event must not confirm, got %s", st)
	}
}

func TestCancelConfirmedBooking(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))
	if _, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorClient); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	b, err := h.coord.Cancel(context.Background(), res.BookingID, models.ActorAdmin)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.Status != models.StatusCancelled || b.CalendarEventID != "" {
		t.Fatalf("unexpected booking after cancel %+v", b)
	}
	if len(h.calendar.deleted) != 1 || h.calendar.deleted[0] != "evt-1" {
		t.Fatalf("calendar event should be deleted, got %v", h.calendar.deleted)
	}
	if len(h.notifier.cancellations) != 1 {
		t.Fatalf("client should get a cancellation email")
	}
	if len(h.payments.cancelled) != 0 {
		t.Fatalf("confirmed bookings are not refunded or cancelled at the processor")
	}

	if _, err := h.coord.Cancel(context.Background(), res.BookingID, models.ActorAdmin); err != nil {
		t.Fatalf("repeated cancel should be a no-op, got %v", err)
	}
	if _, err := h.coord.Complete(context.Background(), res.BookingID); !utils.IsKind(err, utils.KindInvalidTransition) {
		t.Fatalf("cancelled bookings cannot complete, got %v", err)
	}
	reserve(t, h, "natal-chart", local(10, 0))
}

func TestCancelPendingCancelsIntent(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	if _, err := h.coord.Cancel(context.Background(), res.BookingID, models.ActorAdmin); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(h.payments.cancelled) != 1 || len(h.notifier.cancellations) != 0 {
		t.Fatalf("pending cancel should cancel the intent without emailing, got cancelled=%v emails=%d",
			h.payments.cancelled, len(h.notifier.cancellations))
	}
}

func TestFreeServiceConfirmsImmediately(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "free-intro", local(9, 0))

	if res.State != models.AttemptConfirmed || res.PaymentClientSecret != "" {
		t.Fatalf("free reservations skip payment, got %+v", res)
	}
	if len(h.payments.created) != 0 {
		t.Fatalf("no intent should be opened for a free service")
	}
	b, _ := h.ledger.GetByID(context.Background(), res.BookingID)
	if b.Status != models.StatusConfirmed || !b.FreeOfCharge {
		t.Fatalf("unexpected stored booking %+v", b)
	}
	if len(h.notifier.confirmations) != 1 {
		t.Fatalf("free bookings still get a confirmation email")
	}
}

func TestCreateManual(t *testing.T) {
	h := newHarness(t)
	req := models.ManualBookingRequest{ReservationRequest: reservation("retired", local(15, 0)), FreeOfCharge: true}

	b, err := h.coord.CreateManual(context.Background(), req)
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	if b.Status != models.StatusConfirmed || b.PriceCents != 0 || !b.FreeOfCharge {
		t.Fatalf("unexpected manual booking %+v", b)
	}
	if len(h.payments.created) != 0 || b.MeetingLink == "" || len(h.notifier.confirmations) != 1 {
		t.Fatalf("manual bookings skip payment but run side effects")
	}
	if h.audit.events[0].Actor != models.ActorAdmin {
		t.Fatalf("expected admin actor, got %+v", h.audit.events[0])
	}

	if _, err := h.coord.CreateManual(context.Background(), req); !utils.IsKind(err, utils.KindSlotNoLongerAvailable) {
		t.Fatalf("manual bookings respect the ledger, got %v", err)
	}
}

func TestCreateManualPaidServiceNeedsFreeOfCharge(t *testing.T) {
	h := newHarness(t)

	_, err := h.coord.CreateManual(context.Background(), models.ManualBookingRequest{ReservationRequest: reservation("natal-chart", local(15, 0))})
	if !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.ledger.bookings) != 0 || len(h.payments.created) != 0 || len(h.notifier.confirmations) != 0 {
		t.Fatalf("rejected manual booking must leave no trace")
	}
}

func TestConfirmedManualBookingsArePaidOrFree(t *testing.T) {
	h := newHarness(t)
	reqs := []models.ManualBookingRequest{
		{ReservationRequest: reservation("natal-chart", local(10, 0)), FreeOfCharge: true},
		{ReservationRequest: reservation("free-intro", local(13, 0))},
		{ReservationRequest: reservation("natal-chart", local(15, 0))},
	}
	for _, req := range reqs {
		_, _ = h.coord.CreateManual(context.Background(), req)
	}

	if len(h.ledger.bookings) != 2 {
		t.Fatalf("expected two manual bookings, got %d", len(h.ledger.bookings))
	}
	for id, b := range h.ledger.bookings {
		if b.Status == models.StatusConfirmed && !b.FreeOfCharge && b.PaymentIntentID == "" {
			t.Fatalf("booking %s is confirmed with neither a captured payment nor the free flag: %+v", id, b)
		}
		if b.FreeOfCharge && b.PriceCents != 0 {
			t.Fatalf("free booking %s still carries a price: %+v", id, b)
		}
	}
}

func TestCreateManualReportsPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.calendar.err = errors.New("calendar quota")

	b, err := h.coord.CreateManual(context.Background(), models.ManualBookingRequest{ReservationRequest: reservation("natal-chart", local(15, 0)), FreeOfCharge: true})
	var perr *utils.PartialConfirmationError
	if !errors.As(err, &perr) || perr.Failures[stepCalendar] == nil {
		t.Fatalf("expected partial confirmation error, got %v", err)
	}
	if b == nil || b.Status != models.StatusConfirmed || !b.FreeOfCharge {
		t.Fatalf("booking should still be created, got %+v", b)
	}
	if len(h.notifier.alerts) != 1 {
		t.Fatalf("operator should be alerted")
	}
}

func TestCompleteAndRetryRequireConfirmed(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))

	if _, err := h.coord.RetrySideEffects(context.Background(), res.BookingID); !utils.IsKind(err, utils.KindInvalidTransition) {
		t.Fatalf("pending bookings cannot be resent, got %v", err)
	}
	if _, err := h.coord.Complete(context.Background(), res.BookingID); !utils.IsKind(err, utils.KindInvalidTransition) {
		t.Fatalf("pending bookings cannot complete, got %v", err)
	}

	if _, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorClient); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	b, err := h.coord.Complete(context.Background(), res.BookingID)
	if err != nil || b.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %v err=%v", b, err)
	}
	if _, err := h.coord.Get(context.Background(), "missing"); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHistoryListsAuditTrail(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(10, 0))
	if _, err := h.coord.Confirm(context.Background(), res.BookingID, models.PaymentSucceeded, models.ActorWebhook); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	events, err := h.coord.History(context.Background(), res.BookingID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 || events[0].To != models.StatusPending || events[1].To != models.StatusConfirmed {
		t.Fatalf("unexpected history %+v", events)
	}
}

func TestExpireHolds(t *testing.T) {
	h := newHarness(t)
	abandoned := reserve(t, h, "natal-chart", local(9, 0))
	paid := reserve(t, h, "natal-chart", local(11, 0))
	inFlight := reserve(t, h, "natal-chart", local(13, 0))
	h.payments.setStatus(paid.PaymentIntentID, models.IntentSucceeded, "")
	h.payments.setStatus(inFlight.PaymentIntentID, models.IntentProcessing, "")

	early, err := h.coord.ExpireHolds(context.Background(), h.now.Add(10*time.Minute))
	if err != nil || early.Examined != 0 {
		t.Fatalf("no hold has expired yet, got %+v err=%v", early, err)
	}

	res, err := h.coord.ExpireHolds(context.Background(), h.now.Add(31*time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Examined != 3 || res.Abandoned != 1 || res.Confirmed != 1 || res.Failed != 0 {
		t.Fatalf("unexpected sweep result %+v", res)
	}
	if st := h.ledger.status(t, abandoned.BookingID); st != models.StatusCancelled {
		t.Fatalf("abandoned hold should be cancelled, got %s", st)
	}
	if st := h.ledger.status(t, paid.BookingID); st != models.StatusConfirmed {
		t.Fatalf("paid hold should be confirmed, got %s", st)
	}
	if st := h.ledger.status(t, inFlight.BookingID); st != models.StatusPending {
		t.Fatalf("in-flight hold should be kept, got %s", st)
	}
	if len(h.payments.cancelled) != 1 || h.payments.cancelled[0] != abandoned.PaymentIntentID {
		t.Fatalf("only the abandoned intent should be cancelled, got %v", h.payments.cancelled)
	}
}

func TestExpireHoldsKeepsHoldWhenProcessorDown(t *testing.T) {
	h := newHarness(t)
	res := reserve(t, h, "natal-chart", local(9, 0))
	h.payments.getErr = errors.New("timeout")

	sweep, err := h.coord.ExpireHolds(context.Background(), h.now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sweep.Failed != 1 || h.ledger.status(t, res.BookingID) != models.StatusPending {
		t.Fatalf("hold should stay pending when its intent cannot be read, got %+v", sweep)
	}
}
