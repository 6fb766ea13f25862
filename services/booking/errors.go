package booking

import (
	"errors"
	"fmt"
)

// InvalidTransitionError indicates the requested transition is not
// legal from the booking's current state. It is surfaced to the
// caller and never retried automatically.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// UnauthorizedError indicates the acting user is not permitted to
// apply this transition.
type UnauthorizedError struct {
	Reason string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

var (
	// ErrAlreadyClaimed means the claim lost the race. Callers should
	// re-query the pool rather than retry the same booking.
	ErrAlreadyClaimed = errors.New("booking already claimed")

	// ErrVersionConflict means the caller's expected version is
	// stale; a single automatic retry after re-fetching is safe.
	ErrVersionConflict = errors.New("booking version conflict")

	// ErrSettlementAlreadyApplied means commission amounts were
	// already computed for this booking.
	ErrSettlementAlreadyApplied = errors.New("settlement already applied")

	// ErrBookingNotFound is returned for unknown booking ids.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrProviderNotEligible means the provider is unavailable or
	// does not serve the booking's category.
	ErrProviderNotEligible = errors.New("provider not eligible for this booking")
)
