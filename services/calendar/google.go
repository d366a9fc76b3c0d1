package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"astrobook/models"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const allDayLayout = "2006-01-02"

// GoogleCalendar implements Calendar on the Google Calendar v3 API.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	logger     *zap.Logger
}

// NewGoogleCalendar builds the adapter. Pass option.WithCredentialsFile for a service account.
func NewGoogleCalendar(ctx context.Context, calendarID string, loc *time.Location, logger *zap.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	opts = append([]option.ClientOption{option.WithScopes(gcal.CalendarEventsScope)}, opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, loc: loc, logger: logger}, nil
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	call := g.svc.Events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, err := g.toModel(item)
			if err != nil {
				g.logger.Warn("skipping malformed calendar event", zap.String("eventId", item.Id), zap.Error(err))
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	return events, nil
}

func (g *GoogleCalendar) GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	item, err := g.svc.Events.Get(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to fetch calendar event %s: %w", id, err)
	}
	ev, err := g.toModel(item)
	if err != nil {
		return nil, fmt.Errorf("calendar event %s is malformed: %w", id, err)
	}
	return &ev, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev models.CalendarEvent) (string, error) {
	item := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		ColorId:     ev.ColorID,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: ev.End.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
	}
	if ev.Transparent {
		item.Transparency = "transparent"
	}
	for _, email := range ev.Attendees {
		item.Attendees = append(item.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := g.svc.Events.Insert(g.calendarID, item).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes an event. Deleting an event that is already gone succeeds.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, id string) error {
	err := g.svc.Events.Delete(g.calendarID, id).SendUpdates("none").Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("failed to delete calendar event %s: %w", id, err)
	}
	return nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone)
}

func (g *GoogleCalendar) toModel(item *gcal.Event) (models.CalendarEvent, error) {
	ev := models.CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		ColorID:     item.ColorId,
		Cancelled:   item.Status == "cancelled",
		Transparent: item.Transparency == "transparent",
	}
	if ev.Cancelled && item.Start == nil {
		return ev, nil
	}
	if item.Start == nil || item.End == nil {
		return ev, errors.New("event has no start or end")
	}

	var err error
	if item.Start.DateTime == "" {
		ev.AllDay = true
		if ev.Start, err = time.ParseInLocation(allDayLayout, item.Start.Date, g.loc); err != nil {
			return ev, fmt.Errorf("bad start date: %w", err)
		}
		if ev.End, err = time.ParseInLocation(allDayLayout, item.End.Date, g.loc); err != nil {
			return ev, fmt.Errorf("bad end date: %w", err)
		}
	} else {
		if ev.Start, err = time.Parse(time.RFC3339, item.Start.DateTime); err != nil {
			return ev, fmt.Errorf("bad start time: %w", err)
		}
		if ev.End, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
			return ev, fmt.Errorf("bad end time: %w", err)
		}
	}
	if !ev.Cancelled && !ev.End.After(ev.Start) {
		return ev, errors.New("event ends before it starts")
	}
	return ev, nil
}
