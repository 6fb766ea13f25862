package bookingRepo

import (
	"context"
	"errors"
	"time"

	"servly/models"
)

// ErrNotFound is returned when no booking matches the given id.
var ErrNotFound = errors.New("booking not found")

// ErrConditionFailed is returned when a conditional update matched no
// document: the booking exists but its status, version or assignment
// no longer satisfies the update's precondition. The service layer
// maps this onto the claim/transition error taxonomy.
var ErrConditionFailed = errors.New("conditional update matched no document")

// TransitionUpdate describes one conditional status transition. The
// update is applied only if the stored document still has FromStatus
// and ExpectedVersion; on success the version is bumped by one.
type TransitionUpdate struct {
	BookingID       string
	FromStatus      string
	ToStatus        string
	ExpectedVersion int64

	// AssignProviderID sets provider_id when non-nil and non-empty,
	// and clears it when non-nil and empty (pool reopen).
	AssignProviderID *string

	// RequireProviderID restricts the update to documents currently
	// assigned to this provider. Empty means no restriction.
	RequireProviderID string

	// SetTargeted flips the targeted flag, used when a rejected
	// targeted booking is reopened to the pool.
	SetTargeted *bool

	RejectionReason string
	CompletedAt     *time.Time
}

// BookingRepository is the durable source of truth for bookings. All
// mutation beyond creation goes through conditional updates so that
// concurrent commands against the same booking serialize at the store
// rather than in process memory.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(id string) (*models.Booking, error)

	// Claim atomically assigns a pending, unassigned booking to the
	// given provider. Exactly one of any set of concurrent claims on
	// the same booking succeeds; the rest get ErrConditionFailed.
	Claim(ctx context.Context, bookingID, providerID string, expectedVersion int64) (*models.Booking, error)

	// ApplyTransition applies one validated status transition as a
	// single conditional update and returns the updated document.
	ApplyTransition(ctx context.Context, upd TransitionUpdate) (*models.Booking, error)

	// ApplySettlement writes the commission fields once. It fails
	// with ErrConditionFailed if the booking is already settled.
	ApplySettlement(ctx context.Context, bookingID string, rate, commission, net float64) (*models.Booking, error)

	ListPoolable(category string) ([]models.Booking, error)
	ListByCustomer(customerID string) ([]models.Booking, error)
	ListByProvider(providerID, status string) ([]models.Booking, error)

	// ProviderEarnings sums net amounts over completed bookings.
	ProviderEarnings(providerID string) (float64, error)
}
