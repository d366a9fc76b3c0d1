package models

// PaymentIntentStatus mirrors the processor's intent states this system cares about.
type PaymentIntentStatus string

const (
	IntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	IntentRequiresAction        PaymentIntentStatus = "requires_action"
	IntentProcessing            PaymentIntentStatus = "processing"
	IntentSucceeded             PaymentIntentStatus = "succeeded"
	IntentCanceled              PaymentIntentStatus = "canceled"
)

// PaymentIntent is the processor-side record of an intended charge.
type PaymentIntent struct {
	ID               string              `json:"id"`
	ClientSecret     string              `json:"-"`
	Status           PaymentIntentStatus `json:"status"`
	AmountCents      int64               `json:"amountCents"`
	Metadata         map[string]string   `json:"metadata,omitempty"`
	LastPaymentError string              `json:"lastPaymentError,omitempty"`
}

// PaymentOutcome is the final result of a checkout attempt.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentEvent is a verified webhook notification.
type PaymentEvent struct {
	ID        string
	Type      string
	Outcome   PaymentOutcome
	IntentID  string
	BookingID string
	Reason    string
}

// Meeting is a video-meeting created for a confirmed booking.
type Meeting struct {
	ID      string `json:"id"`
	JoinURL string `json:"joinUrl"`
}
