package notification

import (
	"context"
	"fmt"
	"sort"
	"time"

	"astrobook/models"

	"go.uber.org/zap"
)

// EmailNotifier renders templates and sends them through a Mailer.
type EmailNotifier struct {
	mailer        Mailer
	operatorEmail string
	siteName      string
	loc           *time.Location
	logger        *zap.Logger
}

func NewEmailNotifier(mailer Mailer, operatorEmail, siteName string, loc *time.Location, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, operatorEmail: operatorEmail, siteName: siteName, loc: loc, logger: logger}
}

func (n *EmailNotifier) dataFor(b models.Booking) mailData {
	return mailData{
		BookingID:    b.ID,
		ClientName:   b.ClientName,
		ClientEmail:  b.ClientEmail,
		ServiceName:  b.ServiceName,
		When:         b.StartTime.In(n.loc).Format("Monday, January 2, 2006 at 3:04 PM MST"),
		Duration:     b.DurationMinutes,
		MeetingLink:  b.MeetingLink,
		FreeOfCharge: b.FreeOfCharge,
		SiteName:     n.siteName,
	}
}

func (n *EmailNotifier) SendBookingConfirmation(ctx context.Context, b models.Booking) error {
	body, err := render("confirmation", n.dataFor(b))
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	subject := fmt.Sprintf("Your %s is confirmed", b.ServiceName)
	if err := n.mailer.Send(ctx, b.ClientEmail, subject, body); err != nil {
		return fmt.Errorf("send confirmation for booking %s: %w", b.ID, err)
	}
	n.logger.Info("confirmation email sent", zap.String("bookingId", b.ID))
	return nil
}

func (n *EmailNotifier) SendBookingCancellation(ctx context.Context, b models.Booking) error {
	body, err := render("cancellation", n.dataFor(b))
	if err != nil {
		return fmt.Errorf("render cancellation: %w", err)
	}
	subject := fmt.Sprintf("Your %s has been cancelled", b.ServiceName)
	if err := n.mailer.Send(ctx, b.ClientEmail, subject, body); err != nil {
		return fmt.Errorf("send cancellation for booking %s: %w", b.ID, err)
	}
	return nil
}

func (n *EmailNotifier) NotifyOperator(ctx context.Context, b models.Booking, failures map[string]error) error {
	if n.operatorEmail == "" {
		return nil
	}
	data := n.dataFor(b)
	for step, err := range failures {
		data.Failures = append(data.Failures, failureLine{Step: step, Error: err.Error()})
	}
	sort.Slice(data.Failures, func(i, j int) bool { return data.Failures[i].Step < data.Failures[j].Step })

	body, err := render("operator_alert", data)
	if err != nil {
		return fmt.Errorf("render operator alert: %w", err)
	}
	subject := fmt.Sprintf("Action needed: booking %s confirmed with errors", b.ID)
	if err := n.mailer.Send(ctx, n.operatorEmail, subject, body); err != nil {
		return fmt.Errorf("send operator alert for booking %s: %w", b.ID, err)
	}
	return nil
}
