package notification

import (
	"context"

	"astrobook/models"
)

// NotificationService sends the transactional emails of the booking flow.
type NotificationService interface {
	SendBookingConfirmation(ctx context.Context, b models.Booking) error
	SendBookingCancellation(ctx context.Context, b models.Booking) error
	// NotifyOperator alerts the practitioner that confirmation side effects failed.
	NotifyOperator(ctx context.Context, b models.Booking, failures map[string]error) error
}

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
