package booking

import (
	"fmt"
	"time"

	providerRepo "servly/database/repository/provider"

	"go.uber.org/zap"
)

// DispatchPolicy controls what happens when a targeted provider
// rejects (or times out on) a booking.
type DispatchPolicy string

const (
	// PolicyReopen sends the booking back to the pool for claiming.
	PolicyReopen DispatchPolicy = "reopen"
	// PolicyTerminal leaves the booking rejected.
	PolicyTerminal DispatchPolicy = "terminal"
)

// Dispatcher decides whether a booking is targeted at one provider or
// opened to the pool, validates claim eligibility, and drives the
// reopen path after rejection or response timeout.
type Dispatcher struct {
	Providers       providerRepo.ProviderRepository
	Policy          DispatchPolicy
	Timeouts        TimeoutScheduler
	ResponseTimeout time.Duration
	Logger          *zap.Logger
}

// ValidateTarget checks that an explicitly chosen provider exists and
// serves the booking's category. Availability is not required for a
// targeted assignment; the provider may still accept or reject.
func (d *Dispatcher) ValidateTarget(providerID, category string) error {
	provider, err := d.Providers.GetByID(providerID)
	if err != nil {
		return fmt.Errorf("target provider lookup failed: %w", err)
	}
	if !provider.ServesCategory(category) {
		return ErrProviderNotEligible
	}
	return nil
}

// ValidateClaimant checks that a pool claimant is currently available
// and serves the booking's category. The check happens before the
// store-level claim; the claim itself remains the only arbiter of who
// wins.
func (d *Dispatcher) ValidateClaimant(providerID, category string) error {
	provider, err := d.Providers.GetByID(providerID)
	if err != nil {
		return fmt.Errorf("claimant lookup failed: %w", err)
	}
	if !provider.IsAvailable || !provider.ServesCategory(category) {
		return ErrProviderNotEligible
	}
	return nil
}

// ScheduleTimeout arms the response-timeout reopen for a freshly
// created targeted booking. Failures are logged and swallowed: the
// booking stays claimable through explicit rejection either way.
func (d *Dispatcher) ScheduleTimeout(bookingID string) {
	if d.Timeouts == nil || d.ResponseTimeout <= 0 {
		return
	}
	if err := d.Timeouts.ScheduleResponseTimeout(bookingID, d.ResponseTimeout); err != nil {
		d.Logger.Warn("failed to schedule response timeout",
			zap.String("bookingId", bookingID), zap.Error(err))
	}
}

// ShouldReopen reports whether a rejected targeted booking goes back
// to the pool under the configured policy.
func (d *Dispatcher) ShouldReopen() bool {
	return d.Policy != PolicyTerminal
}
