package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"astrobook/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const (
	MetadataBookingID = "booking_id"
	MetadataServiceID = "service_id"

	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
	eventIntentCanceled  = "payment_intent.canceled"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// StripeProcessor implements Processor with Stripe PaymentIntents.
type StripeProcessor struct {
	api           *client.API
	currency      string
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProcessor builds the processor. backends may be nil to use Stripe's defaults.
func NewStripeProcessor(key, webhookSecret, currency string, backends *stripe.Backends, logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{
		api:           client.New(key, backends),
		currency:      strings.ToLower(currency),
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func toModel(pi *stripe.PaymentIntent) *models.PaymentIntent {
	out := &models.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       models.PaymentIntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		Metadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		out.LastPaymentError = pi.LastPaymentError.Msg
	}
	return out
}

func (s *StripeProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*models.PaymentIntent, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("payment intent amount must be positive, got %d", req.AmountCents)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey("booking-" + req.BookingID)
	params.AddMetadata(MetadataBookingID, req.BookingID)
	params.AddMetadata(MetadataServiceID, req.ServiceID)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent for booking %s: %w", req.BookingID, err)
	}
	return toModel(pi), nil
}

func (s *StripeProcessor) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", id, err)
	}
	return toModel(pi), nil
}

func (s *StripeProcessor) CancelPaymentIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	_, err := s.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			s.logger.Info("payment intent already final, nothing to cancel", zap.String("paymentIntentId", id))
			return nil
		}
		return fmt.Errorf("failed to cancel payment intent %s: %w", id, err)
	}
	return nil
}

func (s *StripeProcessor) ParseWebhook(payload []byte, signature string) (*models.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome models.PaymentOutcome
	switch string(event.Type) {
	case eventIntentSucceeded:
		outcome = models.PaymentSucceeded
	case eventIntentFailed, eventIntentCanceled:
		outcome = models.PaymentFailed
	default:
		s.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", event.ID, err)
	}
	out := &models.PaymentEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		Outcome:   outcome,
		IntentID:  pi.ID,
		BookingID: pi.Metadata[MetadataBookingID],
	}
	if pi.LastPaymentError != nil {
		out.Reason = pi.LastPaymentError.Msg
	}
	return out, nil
}
