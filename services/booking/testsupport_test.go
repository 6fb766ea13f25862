package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "servly/database/repository/booking"
	"servly/models"

	"go.uber.org/zap"
)

// memBookingRepo is an in-memory BookingRepository with the same
// conditional-update semantics as the mongo implementation: every
// mutation checks its precondition and applies under one lock, so
// concurrent claims resolve to a single winner exactly as they do at
// the store.
type memBookingRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{byID: make(map[string]*models.Booking)}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	return &c
}

func (r *memBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[b.ID]; exists {
		return fmt.Errorf("duplicate booking id %s", b.ID)
	}
	r.byID[b.ID] = cloneBooking(b)
	return nil
}

func (r *memBookingRepo) GetByID(id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *memBookingRepo) Claim(_ context.Context, bookingID, providerID string, expectedVersion int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[bookingID]
	if !ok || b.Status != "pending" || b.ProviderID != "" || b.Version != expectedVersion {
		return nil, bookingRepo.ErrConditionFailed
	}
	b.ProviderID = providerID
	b.Status = "accepted"
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

func (r *memBookingRepo) ApplyTransition(_ context.Context, upd bookingRepo.TransitionUpdate) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[upd.BookingID]
	if !ok || b.Status != upd.FromStatus || b.Version != upd.ExpectedVersion {
		return nil, bookingRepo.ErrConditionFailed
	}
	if upd.RequireProviderID != "" && b.ProviderID != upd.RequireProviderID {
		return nil, bookingRepo.ErrConditionFailed
	}
	b.Status = upd.ToStatus
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	if upd.AssignProviderID != nil {
		b.ProviderID = *upd.AssignProviderID
	}
	if upd.SetTargeted != nil {
		b.Targeted = *upd.SetTargeted
	}
	if upd.RejectionReason != "" {
		b.RejectionReason = upd.RejectionReason
	}
	if upd.CompletedAt != nil {
		t := *upd.CompletedAt
		b.CompletedAt = &t
	}
	return cloneBooking(b), nil
}

func (r *memBookingRepo) ApplySettlement(_ context.Context, bookingID string, rate, commission, net float64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[bookingID]
	if !ok || b.CommissionAmount != nil {
		return nil, bookingRepo.ErrConditionFailed
	}
	b.CommissionRate = &rate
	b.CommissionAmount = &commission
	b.NetAmount = &net
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

func (r *memBookingRepo) ListPoolable(category string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.byID {
		if b.Status == "pending" && !b.Targeted && b.ProviderID == "" {
			if category == "" || b.Category == category {
				out = append(out, *cloneBooking(b))
			}
		}
	}
	return out, nil
}

func (r *memBookingRepo) ListByCustomer(customerID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.byID {
		if b.CustomerID == customerID {
			out = append(out, *cloneBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) ListByProvider(providerID, status string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.byID {
		if b.ProviderID == providerID && (status == "" || b.Status == status) {
			out = append(out, *cloneBooking(b))
		}
	}
	return out, nil
}

func (r *memBookingRepo) ProviderEarnings(providerID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, b := range r.byID {
		if b.ProviderID == providerID && b.Status == "completed" && b.NetAmount != nil {
			total += *b.NetAmount
		}
	}
	return total, nil
}

// memProviderRepo is a fixed provider directory.
type memProviderRepo struct {
	providers map[string]*models.Provider
}

func (r *memProviderRepo) GetByID(id string) (*models.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", id)
	}
	c := *p
	return &c, nil
}

func (r *memProviderRepo) ListAvailable(category string) ([]models.Provider, error) {
	var out []models.Provider
	for _, p := range r.providers {
		if p.IsAvailable && (category == "" || p.ServesCategory(category)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProviderRepo) GetCommissionRate(id string) (*float64, error) {
	p, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	return p.CommissionRate, nil
}

// memServiceRepo is a fixed service catalog.
type memServiceRepo struct {
	services map[string]*models.Service
}

func (r *memServiceRepo) GetByID(id string) (*models.Service, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("service %s not found", id)
	}
	c := *s
	return &c, nil
}

// capturePublisher records every published event per channel.
type capturePublisher struct {
	mu       sync.Mutex
	booking  map[string][]models.TransitionEvent
	provider map[string][]models.TransitionEvent
	pool     []models.TransitionEvent
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{
		booking:  make(map[string][]models.TransitionEvent),
		provider: make(map[string][]models.TransitionEvent),
	}
}

func (p *capturePublisher) PublishBooking(bookingID string, evt models.TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.booking[bookingID] = append(p.booking[bookingID], evt)
}

func (p *capturePublisher) PublishProvider(providerID string, evt models.TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider[providerID] = append(p.provider[providerID], evt)
}

func (p *capturePublisher) PublishPool(evt models.TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool = append(p.pool, evt)
}

func (p *capturePublisher) poolEvents() []models.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TransitionEvent(nil), p.pool...)
}

func (p *capturePublisher) providerEvents(id string) []models.TransitionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TransitionEvent(nil), p.provider[id]...)
}

// recordScheduler records response-timeout scheduling calls.
type recordScheduler struct {
	mu        sync.Mutex
	scheduled []string
	fail      bool
}

func (s *recordScheduler) ScheduleResponseTimeout(bookingID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("queue unavailable")
	}
	s.scheduled = append(s.scheduled, bookingID)
	return nil
}

// testEnv bundles an engine with its fakes.
type testEnv struct {
	engine    *DefaultBookingEngine
	repo      *memBookingRepo
	providers *memProviderRepo
	events    *capturePublisher
	scheduler *recordScheduler
}

func newTestEnv(policy DispatchPolicy) *testEnv {
	providers := &memProviderRepo{providers: map[string]*models.Provider{
		"prov-a": {ID: "prov-a", IsAvailable: true, ServiceCategories: []string{"cleaning"}},
		"prov-b": {ID: "prov-b", IsAvailable: true, ServiceCategories: []string{"cleaning", "plumbing"}, CommissionRate: rate(15)},
		"prov-c": {ID: "prov-c", IsAvailable: false, ServiceCategories: []string{"cleaning"}},
		"prov-d": {ID: "prov-d", IsAvailable: true, ServiceCategories: []string{"electrical"}},
	}}
	services := &memServiceRepo{services: map[string]*models.Service{
		"svc-clean": {ID: "svc-clean", Name: "Deep Clean", Category: "cleaning", Price: 500, CommissionRate: rate(10)},
		"svc-plumb": {ID: "svc-plumb", Name: "Pipe Fix", Category: "plumbing", Price: 200},
	}}

	repo := newMemBookingRepo()
	events := newCapturePublisher()
	scheduler := &recordScheduler{}
	logger := zap.NewNop()

	dispatcher := &Dispatcher{
		Providers:       providers,
		Policy:          policy,
		Timeouts:        scheduler,
		ResponseTimeout: time.Minute,
		Logger:          logger,
	}
	engine := &DefaultBookingEngine{
		Repo:                  repo,
		Providers:             providers,
		Services:              services,
		Dispatch:              dispatcher,
		Events:                events,
		DefaultCommissionRate: 10,
		Logger:                logger,
	}
	return &testEnv{engine: engine, repo: repo, providers: providers, events: events, scheduler: scheduler}
}

var (
	customer = models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	provA    = models.Actor{ID: "prov-a", Role: models.RoleProvider}
	provB    = models.Actor{ID: "prov-b", Role: models.RoleProvider}
	provC    = models.Actor{ID: "prov-c", Role: models.RoleProvider}
)

func (env *testEnv) createPooled() *models.Booking {
	b, err := env.engine.CreateBooking(context.Background(), CreateBookingRequest{
		ServiceID:     "svc-clean",
		ScheduledTime: time.Now().Add(24 * time.Hour),
		Address:       "12 Rosewood Lane",
	}, customer)
	if err != nil {
		panic(err)
	}
	return b
}

func (env *testEnv) createTargeted(providerID string) *models.Booking {
	b, err := env.engine.CreateBooking(context.Background(), CreateBookingRequest{
		ServiceID:     "svc-clean",
		ProviderID:    providerID,
		ScheduledTime: time.Now().Add(24 * time.Hour),
		Address:       "12 Rosewood Lane",
	}, customer)
	if err != nil {
		panic(err)
	}
	return b
}
