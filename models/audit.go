package models

import "time"

// BookingEvent records one status transition of a booking.
type BookingEvent struct {
	ID        string        `bson:"id" json:"id"`
	BookingID string        `bson:"bookingId" json:"bookingId"`
	From      BookingStatus `bson:"from" json:"from"`
	To        BookingStatus `bson:"to" json:"to"`
	Reason    string        `bson:"reason,omitempty" json:"reason,omitempty"`
	Actor     string        `bson:"actor" json:"actor"`
	At        time.Time     `bson:"at" json:"at"`
}

const (
	ActorClient  = "client"
	ActorAdmin   = "admin"
	ActorWebhook = "stripe_webhook"
	ActorSweeper = "hold_sweeper"
)
