package payment

import (
	"context"

	"astrobook/models"
)

// IntentRequest describes the charge for one booking.
type IntentRequest struct {
	BookingID    string
	ServiceID    string
	AmountCents  int64
	Description  string
	ReceiptEmail string
}

// Processor is the payment processor used by the reservation flow.
type Processor interface {
	// CreatePaymentIntent is idempotent per booking id.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
	// CancelPaymentIntent succeeds when the intent is already in a final state.
	CancelPaymentIntent(ctx context.Context, id string) error
	// ParseWebhook verifies the signature and returns nil for events that are not payment outcomes.
	ParseWebhook(payload []byte, signature string) (*models.PaymentEvent, error)
}
