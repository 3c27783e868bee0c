package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
)

const eventsChannel = "thinkly:events"

// EventBus fans events out to every instance over Redis pub/sub.
// Each instance runs Relay to deliver them to its own websocket hub.
type EventBus struct {
	client *redis.Client
	local  app.EventPublisher
	log    *logrus.Entry
}

// NewEventBus publishes through Redis and falls back to local when Redis is unreachable.
func NewEventBus(client *redis.Client, local app.EventPublisher) *EventBus {
	return &EventBus{
		client: client,
		local:  local,
		log:    logrus.WithField("component", "event-bus"),
	}
}

func (b *EventBus) Publish(ctx context.Context, ev domain.Event) {
	raw, err := json.Marshal(ev)
	if err == nil {
		err = b.client.Publish(ctx, eventsChannel, raw).Err()
	}
	if err != nil {
		b.log.WithError(err).WithField("type", ev.Type).Warn("publish failed, delivering locally")
		if b.local != nil {
			b.local.Publish(ctx, ev)
		}
	}
}

// Relay forwards bus messages to the local publisher until ctx is done.
func (b *EventBus) Relay(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, eventsChannel)
	defer sub.Close()
	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("dropping malformed event")
				continue
			}
			if b.local != nil {
				b.local.Publish(ctx, ev)
			}
		}
	}
}
