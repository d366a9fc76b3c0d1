package calendar

import (
	"context"
	"errors"
	"time"

	"astrobook/models"
)

// ErrEventNotFound is returned when an event id does not exist on the calendar.
var ErrEventNotFound = errors.New("calendar event not found")

// Calendar is the practitioner's external calendar.
type Calendar interface {
	ListEvents(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error)
	GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error)
	CreateEvent(ctx context.Context, event models.CalendarEvent) (string, error)
	DeleteEvent(ctx context.Context, id string) error
}
