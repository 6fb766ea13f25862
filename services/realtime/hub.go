package realtime

import (
	"sync"

	"servly/models"

	"go.uber.org/zap"
)

// ChannelKind distinguishes the three logical channel families of the
// fan-out: one room per booking, one per provider, and a single
// shared pool room for all available providers.
type ChannelKind string

const (
	ChannelBooking  ChannelKind = "booking"
	ChannelProvider ChannelKind = "provider"
	ChannelPool     ChannelKind = "pool"
)

// subscriberBuffer bounds the per-subscriber queue. A subscriber that
// cannot keep up loses events rather than stalling publishers;
// delivery is at-most-once and the store is the source of truth.
const subscriberBuffer = 16

// Subscription is one subscriber's handle on a channel. Events arrive
// on C until Unsubscribe is called.
type Subscription struct {
	Kind ChannelKind
	ID   string
	C    <-chan models.TransitionEvent

	key string
	ch  chan models.TransitionEvent
}

// Hub is the in-process publish-subscribe registry keyed by channel
// id. It is decoupled from the command path: publishers pass
// messages, they never invoke subscriber code directly.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	logger      *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber on the given channel. The pool
// channel ignores the id.
func (h *Hub) Subscribe(kind ChannelKind, id string) *Subscription {
	ch := make(chan models.TransitionEvent, subscriberBuffer)
	sub := &Subscription{
		Kind: kind,
		ID:   id,
		C:    ch,
		key:  channelKey(kind, id),
		ch:   ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[sub.key]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.subscribers[sub.key] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its event channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[sub.key]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.key)
	}
	close(sub.ch)
}

// Publish delivers the event to every current subscriber of the
// channel without blocking; slow subscribers are skipped.
func (h *Hub) Publish(kind ChannelKind, id string, evt models.TransitionEvent) {
	key := channelKey(kind, id)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[key] {
		select {
		case sub.ch <- evt:
		default:
			if h.logger != nil {
				h.logger.Debug("dropping event for slow subscriber",
					zap.String("channel", key),
					zap.String("bookingId", evt.BookingID))
			}
		}
	}
}

// PublishBooking, PublishProvider and PublishPool let the hub stand
// in as an event publisher directly, without the redis bridge, for
// single-instance deployments and tests.
func (h *Hub) PublishBooking(bookingID string, evt models.TransitionEvent) {
	h.Publish(ChannelBooking, bookingID, evt)
}

func (h *Hub) PublishProvider(providerID string, evt models.TransitionEvent) {
	h.Publish(ChannelProvider, providerID, evt)
}

func (h *Hub) PublishPool(evt models.TransitionEvent) {
	h.Publish(ChannelPool, "", evt)
}

func channelKey(kind ChannelKind, id string) string {
	if kind == ChannelPool {
		return string(ChannelPool)
	}
	return string(kind) + ":" + id
}
