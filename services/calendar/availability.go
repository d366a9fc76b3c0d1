package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"astrobook/models"
	"astrobook/utils"

	"go.uber.org/zap"
)

// Markers identify calendar entries that declare open availability.
type Markers struct {
	Summary string
	ColorID string
}

// AvailabilitySource classifies calendar entries into open and busy ranges.
type AvailabilitySource struct {
	cal     Calendar
	markers Markers
	timeout time.Duration
	logger  *zap.Logger
}

func NewAvailabilitySource(cal Calendar, markers Markers, timeout time.Duration, logger *zap.Logger) *AvailabilitySource {
	return &AvailabilitySource{cal: cal, markers: markers, timeout: timeout, logger: logger}
}

// IsMarker reports whether an event declares availability.
func (a *AvailabilitySource) IsMarker(ev models.CalendarEvent) bool {
	if a.markers.Summary != "" && strings.EqualFold(strings.TrimSpace(ev.Summary), strings.TrimSpace(a.markers.Summary)) {
		return true
	}
	return a.markers.ColorID != "" && ev.ColorID == a.markers.ColorID
}

func (a *AvailabilitySource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// ListBusyAndOpenRanges returns the open and busy ranges of the calendar between dayStart and dayEnd.
func (a *AvailabilitySource) ListBusyAndOpenRanges(ctx context.Context, dayStart, dayEnd time.Time) (models.DayAvailability, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	events, err := a.cal.ListEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return models.DayAvailability{}, utils.NewUpstreamError("calendar", err)
	}

	var day models.DayAvailability
	for _, ev := range events {
		if ev.Cancelled {
			continue
		}
		r := models.TimeRange{Start: ev.Start, End: ev.End}
		if !r.IsValid() {
			a.logger.Warn("skipping calendar entry with empty range", zap.String("eventId", ev.ID))
			continue
		}
		switch {
		case a.IsMarker(ev):
			day.Open = append(day.Open, r)
		case ev.Transparent:
		default:
			day.Busy = append(day.Busy, r)
		}
	}
	return day, nil
}

// ListBlocks returns the availability blocks between from and to.
func (a *AvailabilitySource) ListBlocks(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	events, err := a.cal.ListEvents(ctx, from, to)
	if err != nil {
		return nil, utils.NewUpstreamError("calendar", err)
	}
	blocks := []models.AvailabilityBlock{}
	for _, ev := range events {
		if ev.Cancelled || !a.IsMarker(ev) {
			continue
		}
		blocks = append(blocks, models.AvailabilityBlock{ID: ev.ID, Start: ev.Start, End: ev.End, Label: ev.Description})
	}
	return blocks, nil
}

// CreateBlock writes a marked event declaring [start, end) open.
func (a *AvailabilitySource) CreateBlock(ctx context.Context, start, end time.Time, label string) (*models.AvailabilityBlock, error) {
	if !end.After(start) {
		return nil, utils.NewValidationError("block end must be after its start")
	}
	summary := a.markers.Summary
	if summary == "" {
		summary = label
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	id, err := a.cal.CreateEvent(ctx, models.CalendarEvent{
		Summary:     summary,
		Description: label,
		ColorID:     a.markers.ColorID,
		Start:       start,
		End:         end,
		Transparent: true,
	})
	if err != nil {
		return nil, utils.NewUpstreamError("calendar", err)
	}
	return &models.AvailabilityBlock{ID: id, Start: start, End: end, Label: label}, nil
}

// DeleteBlock removes an availability block. Events without the marker are refused.
func (a *AvailabilitySource) DeleteBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	ev, err := a.cal.GetEvent(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		return nil, utils.NewNotFoundError("availability block")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("calendar", err)
	}
	if !a.IsMarker(*ev) {
		return nil, utils.NewValidationError("event %s is not an availability block", id)
	}
	if err := a.cal.DeleteEvent(ctx, id); err != nil {
		return nil, utils.NewUpstreamError("calendar", err)
	}
	return &models.AvailabilityBlock{ID: ev.ID, Start: ev.Start, End: ev.End, Label: ev.Description}, nil
}
