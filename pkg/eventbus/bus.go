// Package eventbus is the in-process pub/sub backbone: components publish
// domain events (attempt recorded, health transitions, quality cycles) and
// subscribers such as the websocket hub or the NATS bridge consume them.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"order-cancellation-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Envelope is the JSON frame carried on every bus message.
type Envelope struct {
	Type       string                 `json:"type"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// Bus wraps a watermill go-channel pub/sub with one topic per event type.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// New creates an in-process bus. Messages are not persisted: subscribers
// only see events published after they subscribe.
func New() *Bus {
	watermillLogger := watermill.NewStdLogger(false, false)
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{}, watermillLogger),
	}
}

// Publish marshals the event into an Envelope and publishes it on the topic
// named by its type code.
func (b *Bus) Publish(event events.Event) error {
	envelope := Envelope{
		Type:       event.EventType(),
		OccurredAt: event.Timestamp().UTC().Format("2006-01-02T15:04:05.999Z07:00"),
		Data:       event.Payload(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("type", event.EventType())

	if err := b.pubSub.Publish(event.EventType(), msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}

	return nil
}

// Subscribe returns the message channel for a single event topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// SubscribeAll fans every known event topic into one channel. Consumers must
// Ack each message to keep their per-topic streams flowing.
func (b *Bus) SubscribeAll(ctx context.Context) (<-chan *message.Message, error) {
	out := make(chan *message.Message)

	for _, topic := range events.Types() {
		ch, err := b.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		go func(ch <-chan *message.Message) {
			for msg := range ch {
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	return out, nil
}

// Close shuts the underlying pub/sub down; subscriber channels are closed.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
