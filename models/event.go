package models

import "time"

// TransitionEvent is published on every successful status transition.
// Delivery is best effort; the booking document in the store is the
// source of truth and a reconnecting subscriber reconciles via REST.
type TransitionEvent struct {
	BookingID  string    `json:"bookingId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Booking    *Booking  `json:"booking,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
