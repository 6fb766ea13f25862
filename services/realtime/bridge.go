package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"servly/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const eventChannelPrefix = "events:"

// RedisBridge carries transition events between process instances
// over Redis pub/sub. Commands publish to Redis only; every instance
// (including the publishing one) re-delivers received messages to its
// local hub subscribers, so fan-out behaves identically at any
// horizontal scale.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisBridge wires a bridge between the redis client and the
// local hub. Call Start to begin relaying inbound events.
func NewRedisBridge(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client: client,
		hub:    hub,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// PublishBooking publishes to the booking room channel.
func (b *RedisBridge) PublishBooking(bookingID string, evt models.TransitionEvent) {
	b.publish(eventChannelPrefix+string(ChannelBooking)+":"+bookingID, evt)
}

// PublishProvider publishes to the provider room channel.
func (b *RedisBridge) PublishProvider(providerID string, evt models.TransitionEvent) {
	b.publish(eventChannelPrefix+string(ChannelProvider)+":"+providerID, evt)
}

// PublishPool publishes to the shared pool channel.
func (b *RedisBridge) PublishPool(evt models.TransitionEvent) {
	b.publish(eventChannelPrefix+string(ChannelPool), evt)
}

// publish is fire and forget: serialization or transport failures are
// logged and swallowed, never surfaced to the originating command.
func (b *RedisBridge) publish(channel string, evt models.TransitionEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("failed to marshal transition event", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
			b.logger.Warn("failed to publish transition event",
				zap.String("channel", channel), zap.Error(err))
		}
	}()
}

// Start subscribes to all event channels and relays inbound messages
// to the local hub until Stop is called.
func (b *RedisBridge) Start() {
	b.pubsub = b.client.PSubscribe(context.Background(), eventChannelPrefix+"*")
	go func() {
		defer close(b.done)
		for msg := range b.pubsub.Channel() {
			b.relay(msg)
		}
	}()
}

// Stop closes the subscription, which ends the message channel and
// with it the relay loop, then waits for the loop to drain.
func (b *RedisBridge) Stop() {
	if b.pubsub == nil {
		return
	}
	if err := b.pubsub.Close(); err != nil {
		b.logger.Warn("failed to close event subscription", zap.Error(err))
	}
	<-b.done
}

func (b *RedisBridge) relay(msg *redis.Message) {
	var evt models.TransitionEvent
	if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
		b.logger.Warn("failed to decode transition event",
			zap.String("channel", msg.Channel), zap.Error(err))
		return
	}

	name := strings.TrimPrefix(msg.Channel, eventChannelPrefix)
	kind, id, _ := strings.Cut(name, ":")
	switch ChannelKind(kind) {
	case ChannelBooking:
		b.hub.Publish(ChannelBooking, id, evt)
	case ChannelProvider:
		b.hub.Publish(ChannelProvider, id, evt)
	case ChannelPool:
		b.hub.Publish(ChannelPool, "", evt)
	default:
		b.logger.Warn("unknown event channel", zap.String("channel", msg.Channel))
	}
}
