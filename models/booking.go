package models

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state stored on a booking row.
type BookingStatus string

const (
	StatusPending       BookingStatus = "pending"
	StatusConfirmed     BookingStatus = "confirmed"
	StatusPaymentFailed BookingStatus = "payment_failed"
	StatusCancelled     BookingStatus = "cancelled"
	StatusCompleted     BookingStatus = "completed"
)

var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusPaymentFailed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// ParseBookingStatus validates a status string.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case StatusPending, StatusConfirmed, StatusPaymentFailed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// ValidateTransition is the single gate for status changes.
func ValidateTransition(from, to BookingStatus) error {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// HoldsTime reports whether a booking in this status occupies the practitioner's calendar.
func (s BookingStatus) HoldsTime() bool {
	return s != StatusCancelled && s != StatusPaymentFailed
}

type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking cannot move from %s to %s", e.From, e.To)
}

// Client carries the details a client submits with a reservation.
type Client struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email,max=320"`
	Birthdate  string `json:"birthdate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Birthtime  string `json:"birthtime,omitempty" validate:"omitempty,datetime=15:04"`
	Birthplace string `json:"birthplace,omitempty" validate:"omitempty,max=200"`
}

// Booking is a reservation of the practitioner's time.
// DurationMinutes and PriceCents are copied from the service when the booking is created.
type Booking struct {
	ID              string        `json:"id"`
	ServiceID       string        `json:"serviceId"`
	ServiceName     string        `json:"serviceName,omitempty"`
	ClientName      string        `json:"clientName"`
	ClientEmail     string        `json:"clientEmail"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	DurationMinutes int           `json:"durationMinutes"`
	PriceCents      int64         `json:"priceCents"`
	Status          BookingStatus `json:"status"`
	FreeOfCharge    bool          `json:"freeOfCharge"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	CalendarEventID string        `json:"calendarEventId,omitempty"`
	MeetingID       string        `json:"meetingId,omitempty"`
	MeetingLink     string        `json:"meetingLink,omitempty"`
	Birthdate       string        `json:"birthdate,omitempty"`
	Birthtime       string        `json:"birthtime,omitempty"`
	Birthplace      string        `json:"birthplace,omitempty"`
	HoldExpiresAt   *time.Time    `json:"holdExpiresAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Range returns the booked interval.
func (b Booking) Range() TimeRange {
	return TimeRange{Start: b.StartTime, End: b.EndTime}
}

// BookingFilter narrows admin booking queries. Zero fields are ignored.
type BookingFilter struct {
	ID     string
	Day    *TimeRange
	Status BookingStatus
	Limit  int
}
