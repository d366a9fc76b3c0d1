package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"astrobook/models"
	"astrobook/services/admin"
	"astrobook/services/booking"
	"astrobook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultBlockRangeDays = 14

// AdminHandler serves the practitioner's dashboard.
type AdminHandler struct {
	Auth         admin.AuthService
	Catalog      admin.CatalogService
	Reservations booking.ReservationService
	Blocks       BlockManager
	Slots        SlotProvider
	Location     *time.Location
	now          func() time.Time
}

func NewAdminHandler(
	auth admin.AuthService,
	catalog admin.CatalogService,
	reservations booking.ReservationService,
	blocks BlockManager,
	slots SlotProvider,
	loc *time.Location,
) *AdminHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminHandler{
		Auth:         auth,
		Catalog:      catalog,
		Reservations: reservations,
		Blocks:       blocks,
		Slots:        slots,
		Location:     loc,
		now:          time.Now,
	}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListServices handles GET /api/admin/services, inactive services included.
func (h *AdminHandler) ListServices(c *gin.Context) {
	services, err := h.Catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *AdminHandler) CreateService(c *gin.Context) {
	var svc models.Service
	if !bindJSON(c, &svc) {
		return
	}
	created, err := h.Catalog.Create(c.Request.Context(), svc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) UpdateService(c *gin.Context) {
	var svc models.Service
	if !bindJSON(c, &svc) {
		return
	}
	updated, err := h.Catalog.Update(c.Request.Context(), c.Param("id"), svc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) DeleteService(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListBookings handles GET /api/admin/bookings?id=&date=&status=&limit=.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	filter := models.BookingFilter{ID: c.Query("id")}
	if date := c.Query("date"); date != "" {
		day, err := booking.DayBounds(date, h.Location)
		if err != nil {
			respondError(c, utils.NewValidationError("%s", err.Error()))
			return
		}
		filter.Day = &day
	}
	if status := c.Query("status"); status != "" {
		st, err := models.ParseBookingStatus(status)
		if err != nil {
			respondError(c, utils.NewValidationError("%s", err.Error()))
			return
		}
		filter.Status = st
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 1000 {
			respondError(c, utils.NewValidationError("limit must be between 1 and 1000"))
			return
		}
		filter.Limit = n
	}

	bookings, err := h.Reservations.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// CreateBooking handles POST /api/admin/bookings. Side-effect failures are
// reported as warnings since the booking itself exists.
func (h *AdminHandler) CreateBooking(c *gin.Context) {
	var req models.ManualBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Reservations.CreateManual(c.Request.Context(), req)
	h.respondWithWarnings(c, http.StatusCreated, b, err)
}

func (h *AdminHandler) BookingEvents(c *gin.Context) {
	events, err := h.Reservations.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *AdminHandler) CompleteBooking(c *gin.Context) {
	b, err := h.Reservations.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// ResendConfirmation handles POST /api/admin/bookings/:id/resend.
func (h *AdminHandler) ResendConfirmation(c *gin.Context) {
	b, err := h.Reservations.RetrySideEffects(c.Request.Context(), c.Param("id"))
	h.respondWithWarnings(c, http.StatusOK, b, err)
}

func (h *AdminHandler) CancelBooking(c *gin.Context) {
	b, err := h.Reservations.Cancel(c.Request.Context(), c.Param("id"), models.ActorAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func (h *AdminHandler) respondWithWarnings(c *gin.Context, status int, b *models.Booking, err error) {
	var perr *utils.PartialConfirmationError
	if errors.As(err, &perr) && b != nil {
		warnings := make([]string, 0, len(perr.Failures))
		for step, ferr := range perr.Failures {
			warnings = append(warnings, step+": "+ferr.Error())
		}
		sort.Strings(warnings)
		getLogger(c).Warn("booking saved with failed side effects", zap.String("bookingId", b.ID), zap.Strings("warnings", warnings))
		c.JSON(status, gin.H{"booking": b, "warnings": warnings})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"booking": b})
}

// ListBlocks handles GET /api/admin/availability?from=YYYY-MM-DD&to=YYYY-MM-DD.
// to is inclusive and defaults to two weeks after from.
func (h *AdminHandler) ListBlocks(c *gin.Context) {
	from := booking.DayKey(h.now(), h.Location)
	if q := c.Query("from"); q != "" {
		from = q
	}
	start, err := booking.DayBounds(from, h.Location)
	if err != nil {
		respondError(c, utils.NewValidationError("from: %s", err.Error()))
		return
	}
	end := start.Start.AddDate(0, 0, defaultBlockRangeDays)
	if q := c.Query("to"); q != "" {
		last, err := booking.DayBounds(q, h.Location)
		if err != nil {
			respondError(c, utils.NewValidationError("to: %s", err.Error()))
			return
		}
		end = last.End
	}
	if !end.After(start.Start) {
		respondError(c, utils.NewValidationError("to must not be before from"))
		return
	}

	blocks, err := h.Blocks.ListBlocks(c.Request.Context(), start.Start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	if blocks == nil {
		blocks = []models.AvailabilityBlock{}
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// CreateBlock handles POST /api/admin/availability with RFC 3339 start and end.
func (h *AdminHandler) CreateBlock(c *gin.Context) {
	var req models.CreateBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		respondError(c, utils.NewValidationError("start must be an RFC 3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		respondError(c, utils.NewValidationError("end must be an RFC 3339 timestamp"))
		return
	}

	block, err := h.Blocks.CreateBlock(c.Request.Context(), start, end, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}
	h.Slots.Invalidate(c.Request.Context(), models.TimeRange{Start: block.Start, End: block.End})
	c.JSON(http.StatusCreated, block)
}

func (h *AdminHandler) DeleteBlock(c *gin.Context) {
	block, err := h.Blocks.DeleteBlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.Slots.Invalidate(c.Request.Context(), models.TimeRange{Start: block.Start, End: block.End})
	c.Status(http.StatusNoContent)
}
