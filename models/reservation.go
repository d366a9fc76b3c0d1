package models

import "time"

// AttemptState tracks a reservation attempt from the client's point of view.
type AttemptState string

const (
	AttemptInitiated         AttemptState = "initiated"
	AttemptProvisionallyHeld AttemptState = "provisionally_held"
	AttemptPaymentPending    AttemptState = "payment_pending"
	AttemptConfirmed         AttemptState = "confirmed"
	AttemptFailed            AttemptState = "failed"
	AttemptAbandoned         AttemptState = "abandoned"
)

// AttemptStateOf derives the attempt state from a stored booking.
func AttemptStateOf(b Booking) AttemptState {
	switch b.Status {
	case StatusPending:
		if b.PaymentIntentID == "" {
			return AttemptProvisionallyHeld
		}
		return AttemptPaymentPending
	case StatusConfirmed, StatusCompleted:
		return AttemptConfirmed
	case StatusPaymentFailed:
		return AttemptFailed
	case StatusCancelled:
		return AttemptAbandoned
	}
	return AttemptInitiated
}

// ReservationRequest is what a client submits to hold a slot.
type ReservationRequest struct {
	ServiceID string    `json:"serviceId" validate:"required"`
	Start     time.Time `json:"start"`
	Client    Client    `json:"client"`
}

// ReservationResult is returned once a hold is in place.
type ReservationResult struct {
	BookingID           string        `json:"bookingId"`
	Status              BookingStatus `json:"status"`
	State               AttemptState  `json:"state"`
	PaymentIntentID     string        `json:"paymentIntentId,omitempty"`
	PaymentClientSecret string        `json:"paymentClientSecret,omitempty"`
	AmountCents         int64         `json:"amountCents"`
	HoldExpiresAt       *time.Time    `json:"holdExpiresAt,omitempty"`
}

// BookingStatusView is the client-facing status of a booking.
type BookingStatusView struct {
	BookingID   string        `json:"bookingId"`
	Status      BookingStatus `json:"status"`
	State       AttemptState  `json:"state"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	ServiceID   string        `json:"serviceId"`
	MeetingLink string        `json:"meetingLink,omitempty"`
}

// StatusView projects a booking for client polling.
func (b Booking) StatusView() BookingStatusView {
	view := BookingStatusView{
		BookingID: b.ID,
		Status:    b.Status,
		State:     AttemptStateOf(b),
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		ServiceID: b.ServiceID,
	}
	// Only a confirmed booking reveals its join link.
	if b.Status == StatusConfirmed {
		view.MeetingLink = b.MeetingLink
	}
	return view
}

// ManualBookingRequest is an admin-created booking that skips online payment.
type ManualBookingRequest struct {
	ReservationRequest
	FreeOfCharge bool `json:"freeOfCharge"`
}
