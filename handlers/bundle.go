package handlers

import (
	"context"
	"time"

	"astrobook/models"
	"astrobook/services/admin"
	"astrobook/services/booking"
)

// SlotProvider is the read side of slot generation the handlers need.
type SlotProvider interface {
	SlotsFor(ctx context.Context, serviceID, date string) ([]models.Slot, error)
	Invalidate(ctx context.Context, r models.TimeRange)
}

// BlockManager manages admin-declared availability windows.
type BlockManager interface {
	ListBlocks(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error)
	CreateBlock(ctx context.Context, start, end time.Time, label string) (*models.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error)
}

// HandlerBundle groups the endpoint handlers registered by routes.
type HandlerBundle struct {
	Booking *BookingHandler
	Webhook *WebhookHandler
	Admin   *AdminHandler
	Health  *HealthHandler
	Auth    admin.AuthService
}

// Deps lists what the handlers are built from.
type Deps struct {
	Reservations booking.ReservationService
	Slots        SlotProvider
	Catalog      admin.CatalogService
	Auth         admin.AuthService
	Blocks       BlockManager
	Payments     WebhookParser
	Health       HealthReporter
	Location     *time.Location
}

func NewHandlerBundle(d Deps) *HandlerBundle {
	return &HandlerBundle{
		Booking: NewBookingHandler(d.Reservations, d.Slots, d.Catalog),
		Webhook: NewWebhookHandler(d.Payments, d.Reservations),
		Admin:   NewAdminHandler(d.Auth, d.Catalog, d.Reservations, d.Blocks, d.Slots, d.Location),
		Health:  NewHealthHandler(d.Health),
		Auth:    d.Auth,
	}
}
