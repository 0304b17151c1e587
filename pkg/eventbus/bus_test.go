package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"order-cancellation-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, events.TypeAttemptRecorded)
	require.NoError(t, err)

	occurred := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	err = bus.Publish(events.BaseEvent{
		Type:       events.TypeAttemptRecorded,
		Data:       map[string]interface{}{"order_id": "A1", "success": true},
		OccurredAt: occurred,
	})
	require.NoError(t, err)

	select {
	case msg := <-messages:
		var envelope Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &envelope))
		assert.Equal(t, events.TypeAttemptRecorded, envelope.Type)
		assert.Equal(t, "A1", envelope.Data["order_id"])
		assert.Equal(t, events.TypeAttemptRecorded, msg.Metadata.Get("type"))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected a message on the attempt topic")
	}
}

func TestSubscribeAllFansIn(t *testing.T) {
	bus := New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)

	for _, eventType := range []string{events.TypeHealthHealthy, events.TypeQualityCycleDone} {
		err := bus.Publish(events.BaseEvent{
			Type:       eventType,
			Data:       map[string]interface{}{},
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-messages:
			seen[msg.Metadata.Get("type")] = true
			msg.Ack()
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 messages, got %d", len(seen))
		}
	}

	assert.True(t, seen[events.TypeHealthHealthy])
	assert.True(t, seen[events.TypeQualityCycleDone])
}

func TestPublishUnknownTopicStillDelivers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Topic-per-type means ad hoc codes work too; SubscribeAll just won't see them.
	messages, err := bus.Subscribe(ctx, "CUSTOM_CODE")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(events.BaseEvent{Type: "CUSTOM_CODE", OccurredAt: time.Now()}))

	select {
	case msg := <-messages:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected delivery on ad hoc topic")
	}
}
