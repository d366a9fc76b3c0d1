package handlers

import (
	"errors"
	"io"
	"net/http"

	"astrobook/models"
	"astrobook/services/booking"
	"astrobook/services/payment"
	"astrobook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookParser verifies and decodes a processor webhook.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*models.PaymentEvent, error)
}

type WebhookHandler struct {
	Payments     WebhookParser
	Reservations booking.ReservationService
}

func NewWebhookHandler(payments WebhookParser, reservations booking.ReservationService) *WebhookHandler {
	return &WebhookHandler{Payments: payments, Reservations: reservations}
}

// Stripe handles POST /api/webhooks/stripe. Non-2xx answers make Stripe redeliver.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	logger := getLogger(c)
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, utils.NewValidationError("could not read body"))
		return
	}

	event, err := h.Payments.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			logger.Warn("rejected webhook with invalid signature")
			respondError(c, utils.NewValidationError("invalid signature"))
			return
		}
		respondError(c, utils.NewValidationError("invalid webhook payload"))
		return
	}
	if event == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.Reservations.HandlePaymentEvent(c.Request.Context(), *event); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("payment event applied", zap.String("eventId", event.ID), zap.String("type", event.Type))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
