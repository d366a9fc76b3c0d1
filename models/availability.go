package models

import "time"

// CalendarEvent is an entry on the practitioner's external calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	ColorID     string    `json:"colorId,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay,omitempty"`
	Cancelled   bool      `json:"-"`
	Transparent bool      `json:"-"`
	// Attendees are invited when the event is created.
	Attendees []string `json:"attendees,omitempty"`
}

// AvailabilityBlock is an admin-declared open window, stored as a marked calendar event.
type AvailabilityBlock struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// DayAvailability is the classified view of one day of calendar entries.
type DayAvailability struct {
	Open []TimeRange
	Busy []TimeRange
}

// Slot is an offerable start time for a service.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
