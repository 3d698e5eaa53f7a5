package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/evercrm/cadence/pkg/channels/gochannel"
	"github.com/evercrm/cadence/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBusRoundTrip(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.EnrollmentCreated, 1)

	err = bus.Handle(events.EnrollmentCreatedEvent, func(ctx context.Context, event any) error {
		created, ok := event.(*events.EnrollmentCreated)
		require.True(t, ok)
		received <- created

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := events.EnrollmentCreated{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentCreatedEvent, "t1", "cmp-1"),
		EnrollmentID: "e1",
		ContactID:    "c1",
		Source:       "api",
	}
	require.NoError(t, bus.Publish(ctx, "cmp-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "e1", got.EnrollmentID)
		assert.Equal(t, "c1", got.ContactID)
		assert.Equal(t, "t1", got.TenantID)
		assert.Equal(t, events.EnrollmentCreatedEvent, got.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBusIgnoresUnsubscribedTypes(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.EnrollmentExited, 1)

	err = bus.Handle(events.EnrollmentExitedEvent, func(ctx context.Context, event any) error {
		received <- event.(*events.EnrollmentExited)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// An event type with no handler is acked and dropped.
	require.NoError(t, bus.Publish(ctx, "cmp-1", events.EnrollmentCompleted{
		BaseEvent: events.NewBaseEvent(events.EnrollmentCompletedEvent, "t1", "cmp-1"),
	}))

	require.NoError(t, bus.Publish(ctx, "cmp-1", events.EnrollmentExited{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentExitedEvent, "t1", "cmp-1"),
		EnrollmentID: "e1",
		ExitReason:   "stage_changed",
	}))

	select {
	case got := <-received:
		assert.Equal(t, "e1", got.EnrollmentID)
		assert.Equal(t, "stage_changed", got.ExitReason)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}
