package booking

import (
	"context"
	"time"

	"servly/models"
)

// CreateBookingRequest carries customer-supplied booking details.
// ProviderID, when set, makes the booking targeted at that provider;
// otherwise it is pooled to every available category-matching
// provider.
type CreateBookingRequest struct {
	CustomerID    string    `json:"customerId,omitempty"`
	ServiceID     string    `json:"serviceId" binding:"required"`
	ProviderID    string    `json:"providerId,omitempty"`
	ScheduledTime time.Time `json:"scheduledTime" binding:"required"`
	Address       string    `json:"address" binding:"required"`
	Notes         string    `json:"notes,omitempty"`
	Surcharge     float64   `json:"surcharge,omitempty"`
	RateOverride  *float64  `json:"rateOverride,omitempty"`
}

// BookingEngine exposes the lifecycle commands and queries of the
// dispatch core. Commands take the acting user from the session
// middleware and an expected version token; passing a negative
// version lets the engine use the current stored version.
type BookingEngine interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest, actor models.Actor) (*models.Booking, error)
	ClaimBooking(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error)
	AcceptBooking(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error)
	RejectBooking(ctx context.Context, bookingID string, actor models.Actor, reason string, expectedVersion int64) (*models.Booking, error)
	StartService(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error)
	CompleteService(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string, actor models.Actor, reason string, expectedVersion int64) (*models.Booking, error)

	// ReopenBooking sends a rejected targeted booking back to the
	// pool, clearing its assignment. Invoked by the reject flow under
	// the reopen policy and by the response-timeout worker.
	ReopenBooking(ctx context.Context, bookingID string) (*models.Booking, error)

	GetBooking(id string) (*models.Booking, error)
	ListPoolable(category string) ([]models.Booking, error)
	ListByCustomer(customerID string) ([]models.Booking, error)
	ListByProvider(providerID, status string) ([]models.Booking, error)
	ProviderEarnings(providerID string) (float64, error)
}

// EventPublisher fans transition events out to the booking, provider
// and pool channels. Implementations must never block the command
// path; delivery is best effort and the store remains authoritative.
type EventPublisher interface {
	PublishBooking(bookingID string, evt models.TransitionEvent)
	PublishProvider(providerID string, evt models.TransitionEvent)
	PublishPool(evt models.TransitionEvent)
}

// TimeoutScheduler schedules the reopen of a targeted booking that
// received no provider response within the configured window. Backed
// by the task queue worker; a no-op implementation is valid for
// deployments without targeted dispatch.
type TimeoutScheduler interface {
	ScheduleResponseTimeout(bookingID string, in time.Duration) error
}
