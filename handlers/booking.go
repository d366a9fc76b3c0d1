package handlers

import (
	"net/http"

	"astrobook/models"
	"astrobook/services/admin"
	"astrobook/services/booking"
	"astrobook/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler serves the public booking flow of the website.
type BookingHandler struct {
	Reservations booking.ReservationService
	Slots        SlotProvider
	Catalog      admin.CatalogService
}

func NewBookingHandler(reservations booking.ReservationService, slots SlotProvider, catalog admin.CatalogService) *BookingHandler {
	return &BookingHandler{Reservations: reservations, Slots: slots, Catalog: catalog}
}

// GetServices handles GET /api/services.
func (h *BookingHandler) GetServices(c *gin.Context) {
	services, err := h.Catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GetAvailability handles GET /api/availability?serviceId=&date=YYYY-MM-DD.
// When the calendar cannot be read the response is 503 with no slots.
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	serviceID := c.Query("serviceId")
	date := c.Query("date")

	slots, err := h.Slots.SlotsFor(c.Request.Context(), serviceID, date)
	if err != nil {
		if utils.IsKind(err, utils.KindUpstreamUnavailable) {
			getLogger(c).Warn("availability unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"slots":     []models.Slot{},
				"code":      string(utils.KindUpstreamUnavailable),
				"message":   "availability is temporarily unavailable, please try again shortly",
				"retryable": true,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"serviceId": serviceID, "date": date, "slots": slots})
}

// CreateReservation handles POST /api/reservations.
func (h *BookingHandler) CreateReservation(c *gin.Context) {
	var req models.ReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Reservations.Reserve(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetReservation handles GET /api/reservations/:id for client polling.
func (h *BookingHandler) GetReservation(c *gin.Context) {
	b, err := h.Reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.StatusView())
}

// ConfirmReservation handles POST /api/reservations/:id/confirm after the
// client finished checkout. The outcome is read from the payment processor.
func (h *BookingHandler) ConfirmReservation(c *gin.Context) {
	b, err := h.Reservations.ConfirmFromIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.StatusView())
}

// CancelReservation handles DELETE /api/reservations/:id (admin only).
func (h *BookingHandler) CancelReservation(c *gin.Context) {
	b, err := h.Reservations.Cancel(c.Request.Context(), c.Param("id"), models.ActorAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.StatusView())
}
