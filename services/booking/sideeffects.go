package booking

import (
	"context"
	"fmt"
	"strings"

	"astrobook/models"
	"astrobook/services/meeting"
	"astrobook/utils"

	"go.uber.org/zap"
)

const (
	stepMeeting  = "meeting"
	stepCalendar = "calendar"
	stepEmail    = "email"
)

// runSideEffects performs the post-confirmation steps. Each step has its own timeout
// and a failure never stops the next one. b is updated with whatever was attached.
func (c *ReservationCoordinator) runSideEffects(ctx context.Context, b *models.Booking, sendEmail bool) *utils.PartialConfirmationError {
	failures := map[string]error{}
	log := c.logger.With(zap.String("bookingId", b.ID))

	if c.Meetings != nil && b.MeetingLink == "" {
		if err := c.attachMeeting(ctx, b); err != nil {
			failures[stepMeeting] = err
		}
	}
	if c.Calendar != nil && b.CalendarEventID == "" {
		if err := c.attachCalendarEvent(ctx, b); err != nil {
			failures[stepCalendar] = err
		}
	}
	if sendEmail && c.Notifier != nil {
		nctx, cancel := c.external(ctx)
		err := c.Notifier.SendBookingConfirmation(nctx, *b)
		cancel()
		if err != nil {
			failures[stepEmail] = err
		}
	}

	if len(failures) == 0 {
		return nil
	}
	for step, err := range failures {
		log.Error("confirmation side effect failed",
			zap.String("kind", string(utils.KindPartialConfirmationFailure)), zap.String("step", step), zap.Error(err))
	}
	return &utils.PartialConfirmationError{BookingID: b.ID, Failures: failures}
}

func (c *ReservationCoordinator) attachMeeting(ctx context.Context, b *models.Booking) error {
	mctx, cancel := c.external(ctx)
	defer cancel()

	m, err := c.Meetings.CreateMeeting(mctx, meeting.MeetingRequest{
		Topic:    fmt.Sprintf("%s with %s", b.ServiceName, b.ClientName),
		Start:    b.StartTime,
		Duration: b.EndTime.Sub(b.StartTime),
		Timezone: c.settings.Location.String(),
		Agenda:   "Booking " + b.ID,
	})
	if err != nil {
		return err
	}
	if err := c.Ledger.SetMeeting(ctx, b.ID, m.ID, m.JoinURL); err != nil {
		return fmt.Errorf("meeting %s created but not saved: %w", m.ID, err)
	}
	b.MeetingID, b.MeetingLink = m.ID, m.JoinURL
	return nil
}

func (c *ReservationCoordinator) attachCalendarEvent(ctx context.Context, b *models.Booking) error {
	cctx, cancel := c.external(ctx)
	defer cancel()

	id, err := c.Calendar.CreateEvent(cctx, models.CalendarEvent{
		Summary:     fmt.Sprintf("%s with %s", b.ServiceName, b.ClientName),
		Description: eventDescription(b),
		Start:       b.StartTime,
		End:         b.EndTime,
	})
	if err != nil {
		return err
	}
	if err := c.Ledger.SetCalendarEvent(ctx, b.ID, id); err != nil {
		return fmt.Errorf("calendar event %s created but not saved: %w", id, err)
	}
	b.CalendarEventID = id
	return nil
}

func eventDescription(b *models.Booking) string {
	lines := []string{
		"Client: " + b.ClientName + " <" + b.ClientEmail + ">",
		"Booking: " + b.ID,
	}
	if b.Birthdate != "" {
		birth := "Born: " + b.Birthdate
		if b.Birthtime != "" {
			birth += " " + b.Birthtime
		}
		if b.Birthplace != "" {
			birth += ", " + b.Birthplace
		}
		lines = append(lines, birth)
	}
	if b.MeetingLink != "" {
		lines = append(lines, "Join: "+b.MeetingLink)
	}
	if b.FreeOfCharge {
		lines = append(lines, "Free of charge")
	}
	return strings.Join(lines, "\n")
}

func (c *ReservationCoordinator) alertOperator(ctx context.Context, b models.Booking, failures map[string]error) {
	if c.Notifier == nil {
		return
	}
	nctx, cancel := c.external(ctx)
	defer cancel()
	if err := c.Notifier.NotifyOperator(nctx, b, failures); err != nil {
		c.logger.Error("failed to alert operator", zap.String("bookingId", b.ID), zap.Error(err))
	}
}
