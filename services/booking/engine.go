package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "servly/database/repository/booking"
	providerRepo "servly/database/repository/provider"
	serviceRepo "servly/database/repository/service"
	"servly/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBookingEngine is the default BookingEngine implementation.
// Validation happens in process, but every mutation is a conditional
// store update keyed on the version token, so concurrent commands
// against the same booking serialize at the store even across process
// instances.
type DefaultBookingEngine struct {
	Repo      bookingRepo.BookingRepository
	Providers providerRepo.ProviderRepository
	Services  serviceRepo.ServiceRepository
	Dispatch  *Dispatcher
	Events    EventPublisher

	// DefaultCommissionRate is the platform fallback used when
	// neither the booking, the provider nor the service carries one.
	DefaultCommissionRate float64

	Logger *zap.Logger
}

// CreateBooking registers a new booking in pending state. A chosen
// provider makes it targeted; otherwise it is announced to the pool.
func (e *DefaultBookingEngine) CreateBooking(ctx context.Context, req CreateBookingRequest, actor models.Actor) (*models.Booking, error) {
	customerID := req.CustomerID
	switch actor.Role {
	case models.RoleCustomer:
		customerID = actor.ID
	case models.RoleAdmin:
		if customerID == "" {
			return nil, UnauthorizedError{Reason: "admin-created bookings must name a customer"}
		}
	default:
		return nil, UnauthorizedError{Reason: "only customers or admins may create bookings"}
	}

	svc, err := e.Services.GetByID(req.ServiceID)
	if err != nil {
		return nil, err
	}

	targeted := req.ProviderID != ""
	if targeted {
		if err := e.Dispatch.ValidateTarget(req.ProviderID, svc.Category); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	b := &models.Booking{
		ID:            uuid.New().String(),
		CustomerID:    customerID,
		ServiceID:     svc.ID,
		ProviderID:    req.ProviderID,
		Status:        StatusPending.String(),
		Targeted:      targeted,
		Category:      svc.Category,
		Address:       req.Address,
		Notes:         req.Notes,
		Surcharge:     req.Surcharge,
		ScheduledTime: req.ScheduledTime,
		TotalAmount:   svc.Price + req.Surcharge,
		RateOverride:  req.RateOverride,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.Create(ctx, b); err != nil {
		return nil, err
	}

	e.publish("", StatusPending, b, !targeted, "")
	if targeted {
		e.Dispatch.ScheduleTimeout(b.ID)
	}
	return b, nil
}

// ClaimBooking resolves a provider's attempt to win a pooled booking.
// The single store-level conditional update is the only arbiter; a
// losing claimant gets ErrAlreadyClaimed and should re-query the pool.
func (e *DefaultBookingEngine) ClaimBooking(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error) {
	if actor.Role != models.RoleProvider {
		return nil, UnauthorizedError{Reason: "only providers may claim bookings"}
	}
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	if b.Assigned() {
		return nil, ErrAlreadyClaimed
	}
	if !Status(b.Status).CanTransitionTo(StatusAccepted) {
		return nil, InvalidTransitionError{From: Status(b.Status), To: StatusAccepted}
	}
	if err := e.Dispatch.ValidateClaimant(actor.ID, b.Category); err != nil {
		return nil, err
	}

	version := expectedVersion
	if version < 0 {
		version = b.Version
	}
	updated, err := e.Repo.Claim(ctx, bookingID, actor.ID, version)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrConditionFailed) {
			return nil, ErrAlreadyClaimed
		}
		return nil, err
	}

	e.publish(StatusPending, StatusAccepted, updated, true, "")
	return updated, nil
}

// AcceptBooking lets the targeted provider take a pre-assigned
// pending booking.
func (e *DefaultBookingEngine) AcceptBooking(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProvider || b.ProviderID != actor.ID {
		return nil, UnauthorizedError{Reason: "only the assigned provider may accept this booking"}
	}

	updated, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:         bookingID,
		FromStatus:        StatusPending.String(),
		ToStatus:          StatusAccepted.String(),
		ExpectedVersion:   pickVersion(expectedVersion, b.Version),
		RequireProviderID: actor.ID,
	})
	if err != nil {
		return nil, err
	}
	if applied {
		e.publish(StatusPending, StatusAccepted, updated, false, "")
	}
	return updated, nil
}

// RejectBooking records the targeted provider's rejection and, under
// the reopen policy, sends the booking back to the pool.
func (e *DefaultBookingEngine) RejectBooking(ctx context.Context, bookingID string, actor models.Actor, reason string, expectedVersion int64) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProvider || b.ProviderID != actor.ID {
		return nil, UnauthorizedError{Reason: "only the assigned provider may reject this booking"}
	}

	rejected, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:         bookingID,
		FromStatus:        StatusPending.String(),
		ToStatus:          StatusRejected.String(),
		ExpectedVersion:   pickVersion(expectedVersion, b.Version),
		RequireProviderID: actor.ID,
		RejectionReason:   reason,
	})
	if err != nil {
		return nil, err
	}
	if applied {
		e.publish(StatusPending, StatusRejected, rejected, false, "")
	}

	if !e.Dispatch.ShouldReopen() {
		return rejected, nil
	}
	reopened, err := e.reopenRejected(ctx, rejected)
	if err != nil {
		// The rejection itself stands; the timeout worker or an
		// operator can reopen later.
		e.Logger.Warn("failed to reopen rejected booking",
			zap.String("bookingId", bookingID), zap.Error(err))
		return rejected, nil
	}
	return reopened, nil
}

// StartService moves an accepted booking into in_progress.
func (e *DefaultBookingEngine) StartService(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProvider || b.ProviderID != actor.ID {
		return nil, UnauthorizedError{Reason: "only the assigned provider may start this booking"}
	}

	updated, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:         bookingID,
		FromStatus:        StatusAccepted.String(),
		ToStatus:          StatusInProgress.String(),
		ExpectedVersion:   pickVersion(expectedVersion, b.Version),
		RequireProviderID: actor.ID,
	})
	if err != nil {
		return nil, err
	}
	if applied {
		e.publish(StatusAccepted, StatusInProgress, updated, false, "")
	}
	return updated, nil
}

// CompleteService finishes an in_progress booking and runs settlement
// exactly once. Completing an already-completed booking returns
// ErrSettlementAlreadyApplied with amounts unchanged.
func (e *DefaultBookingEngine) CompleteService(ctx context.Context, bookingID string, actor models.Actor, expectedVersion int64) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProvider || b.ProviderID != actor.ID {
		return nil, UnauthorizedError{Reason: "only the assigned provider may complete this booking"}
	}

	completedAt := time.Now().UTC()
	updated, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:         bookingID,
		FromStatus:        StatusInProgress.String(),
		ToStatus:          StatusCompleted.String(),
		ExpectedVersion:   pickVersion(expectedVersion, b.Version),
		RequireProviderID: actor.ID,
		CompletedAt:       &completedAt,
	})
	if err != nil {
		return nil, err
	}
	if !applied && updated.Settled() {
		return updated, ErrSettlementAlreadyApplied
	}

	settled, err := e.settle(ctx, updated)
	if err != nil {
		return updated, err
	}
	if applied {
		e.publish(StatusInProgress, StatusCompleted, settled, false, "")
	}
	return settled, nil
}

// CancelBooking cancels a booking. Customers and the assigned
// provider may cancel pending or accepted bookings; cancelling an
// in_progress booking is the privileged operator override.
func (e *DefaultBookingEngine) CancelBooking(ctx context.Context, bookingID string, actor models.Actor, reason string, expectedVersion int64) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}
	from := Status(b.Status)
	if !from.CanTransitionTo(StatusCancelled) {
		return nil, InvalidTransitionError{From: from, To: StatusCancelled}
	}

	switch actor.Role {
	case models.RoleAdmin:
		// Operator override, including mid-service cancellation.
	case models.RoleCustomer:
		if b.CustomerID != actor.ID {
			return nil, UnauthorizedError{Reason: "booking belongs to another customer"}
		}
		if from == StatusInProgress {
			return nil, UnauthorizedError{Reason: "mid-service cancellation requires an operator"}
		}
	case models.RoleProvider:
		if b.ProviderID != actor.ID {
			return nil, UnauthorizedError{Reason: "booking is not assigned to this provider"}
		}
		if from == StatusInProgress {
			return nil, UnauthorizedError{Reason: "mid-service cancellation requires an operator"}
		}
	default:
		return nil, UnauthorizedError{Reason: "unknown actor role"}
	}

	updated, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:       bookingID,
		FromStatus:      from.String(),
		ToStatus:        StatusCancelled.String(),
		ExpectedVersion: pickVersion(expectedVersion, b.Version),
		RejectionReason: reason,
	})
	if err != nil {
		return nil, err
	}
	if applied {
		poolEligible := !b.Targeted && from == StatusPending
		e.publish(from, StatusCancelled, updated, poolEligible, "")
	}
	return updated, nil
}

// ReopenBooking sends a booking back to the pool. It serves two
// callers: the reject flow (booking already rejected) and the
// response-timeout worker (booking still pending and targeted, the
// provider never responded).
func (e *DefaultBookingEngine) ReopenBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := e.load(bookingID)
	if err != nil {
		return nil, err
	}

	switch Status(b.Status) {
	case StatusRejected:
		return e.reopenRejected(ctx, b)
	case StatusPending:
		if !b.Targeted || !b.Assigned() {
			// Already pooled; nothing to do.
			return b, nil
		}
		rejected, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
			BookingID:       bookingID,
			FromStatus:      StatusPending.String(),
			ToStatus:        StatusRejected.String(),
			ExpectedVersion: b.Version,
			RejectionReason: "no provider response within the dispatch window",
		})
		if err != nil {
			return nil, err
		}
		if applied {
			e.publish(StatusPending, StatusRejected, rejected, false, "")
		}
		return e.reopenRejected(ctx, rejected)
	default:
		return nil, InvalidTransitionError{From: Status(b.Status), To: StatusPending}
	}
}

// reopenRejected applies rejected -> pending, clearing the assignment
// so the next claim starts a fresh episode.
func (e *DefaultBookingEngine) reopenRejected(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	previousProvider := b.ProviderID
	unassigned := ""
	pooled := false
	reopened, applied, err := e.transition(ctx, b, bookingRepo.TransitionUpdate{
		BookingID:        b.ID,
		FromStatus:       StatusRejected.String(),
		ToStatus:         StatusPending.String(),
		ExpectedVersion:  b.Version,
		AssignProviderID: &unassigned,
		SetTargeted:      &pooled,
	})
	if err != nil {
		return nil, err
	}
	if applied {
		e.publish(StatusRejected, StatusPending, reopened, true, previousProvider)
	}
	return reopened, nil
}

// settle computes and writes commission amounts once. The guard lives
// in the store: a second settlement attempt matches no document.
func (e *DefaultBookingEngine) settle(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if b.Settled() {
		return b, ErrSettlementAlreadyApplied
	}

	var providerRate *float64
	if b.ProviderID != "" {
		rate, err := e.Providers.GetCommissionRate(b.ProviderID)
		if err != nil {
			e.Logger.Warn("provider commission lookup failed, falling through",
				zap.String("providerId", b.ProviderID), zap.Error(err))
		} else {
			providerRate = rate
		}
	}
	var serviceRate *float64
	if svc, err := e.Services.GetByID(b.ServiceID); err == nil {
		serviceRate = svc.CommissionRate
	}

	rate := resolveCommissionRate(b, providerRate, serviceRate, e.DefaultCommissionRate)
	commission, net := computeSettlement(b.TotalAmount, rate)

	settled, err := e.Repo.ApplySettlement(ctx, b.ID, rate, commission, net)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrConditionFailed) {
			return b, ErrSettlementAlreadyApplied
		}
		return nil, err
	}
	return settled, nil
}

func (e *DefaultBookingEngine) GetBooking(id string) (*models.Booking, error) {
	return e.load(id)
}

func (e *DefaultBookingEngine) ListPoolable(category string) ([]models.Booking, error) {
	return e.Repo.ListPoolable(category)
}

func (e *DefaultBookingEngine) ListByCustomer(customerID string) ([]models.Booking, error) {
	return e.Repo.ListByCustomer(customerID)
}

func (e *DefaultBookingEngine) ListByProvider(providerID, status string) ([]models.Booking, error) {
	if status != "" {
		if _, err := ParseStatus(status); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListByProvider(providerID, status)
}

func (e *DefaultBookingEngine) ProviderEarnings(providerID string) (float64, error) {
	return e.Repo.ProviderEarnings(providerID)
}

func (e *DefaultBookingEngine) load(bookingID string) (*models.Booking, error) {
	b, err := e.Repo.GetByID(bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// transition applies one conditional update and classifies a failed
// precondition: a store already reflecting the target state is an
// idempotent no-op, a stale version is a conflict, anything else is
// an illegal transition. The stored booking is never touched on
// failure.
func (e *DefaultBookingEngine) transition(ctx context.Context, b *models.Booking, upd bookingRepo.TransitionUpdate) (*models.Booking, bool, error) {
	from, target := Status(upd.FromStatus), Status(upd.ToStatus)
	if !from.CanTransitionTo(target) {
		return nil, false, InvalidTransitionError{From: from, To: target}
	}

	updated, err := e.Repo.ApplyTransition(ctx, upd)
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, bookingRepo.ErrConditionFailed) {
		return nil, false, err
	}

	current, loadErr := e.load(b.ID)
	if loadErr != nil {
		return nil, false, loadErr
	}
	if current.Status == upd.ToStatus {
		return current, false, nil
	}
	if current.Status == upd.FromStatus && current.Version != upd.ExpectedVersion {
		return nil, false, ErrVersionConflict
	}
	return nil, false, InvalidTransitionError{From: Status(current.Status), To: target}
}

// publish fans the transition out. Publication never blocks and its
// failure never fails the command; the store write already happened
// and is authoritative.
func (e *DefaultBookingEngine) publish(from, to Status, b *models.Booking, poolEligible bool, extraProvider string) {
	if e.Events == nil {
		return
	}
	evt := models.TransitionEvent{
		BookingID:  b.ID,
		FromStatus: from.String(),
		ToStatus:   to.String(),
		Booking:    b,
		Timestamp:  time.Now().UTC(),
	}
	e.Events.PublishBooking(b.ID, evt)
	if b.ProviderID != "" {
		e.Events.PublishProvider(b.ProviderID, evt)
	}
	if extraProvider != "" && extraProvider != b.ProviderID {
		e.Events.PublishProvider(extraProvider, evt)
	}
	if poolEligible {
		e.Events.PublishPool(evt)
	}
}

func pickVersion(expected, current int64) int64 {
	if expected < 0 {
		return current
	}
	return expected
}
