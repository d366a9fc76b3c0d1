package models

import "time"

// Service is a bookable reading offered by the practitioner.
type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name" validate:"required,max=120"`
	Description     string    `json:"description" validate:"max=4000"`
	DurationMinutes int       `json:"durationMinutes" validate:"required,gte=15,lte=480"`
	PriceCents      int64     `json:"priceCents" validate:"gte=0"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
