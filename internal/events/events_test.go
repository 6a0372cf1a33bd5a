package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBus(t *testing.T) EventBus {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	bus := NewInMemoryEventBus(&EventBusConfig{
		BufferSize:     16,
		WorkerCount:    2,
		HandlerTimeout: time.Second,
	}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	})
	return bus
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := testBus(t)

	var got atomic.Int64
	err := bus.Subscribe(EventBadgeAwarded, NewEventHandlerFunc("counter", func(ctx context.Context, event Event) error {
		got.Add(1)
		return nil
	}))
	require.NoError(t, err)

	event := NewBadgeAwardedEvent(1, 42, "First Steps")
	require.NoError(t, bus.Publish(context.Background(), event))
	assert.Equal(t, int64(1), got.Load())

	// Events of other types do not reach the handler
	require.NoError(t, bus.Publish(context.Background(), NewActivityDeletedEvent(1, 42)))
	assert.Equal(t, int64(1), got.Load())
}

func TestPublishAsyncProcessedByWorkers(t *testing.T) {
	bus := testBus(t)
	require.NoError(t, bus.Start(context.Background()))

	done := make(chan Event, 1)
	err := bus.Subscribe(EventActivityCreated, NewEventHandlerFunc("recorder", func(ctx context.Context, event Event) error {
		done <- event
		return nil
	}))
	require.NoError(t, err)

	published := NewActivityCreatedEvent(7, 42, "run", 5, 30, time.Now(), "manual")
	require.NoError(t, bus.PublishAsync(context.Background(), published))

	select {
	case event := <-done:
		assert.Equal(t, published.GetEventID(), event.GetEventID())
		require.NotNil(t, event.GetUserID())
		assert.Equal(t, int64(42), *event.GetUserID())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not processed")
	}
}

func TestTypedEventHandler(t *testing.T) {
	bus := testBus(t)

	var gotActivityID int64
	handler := NewTypedEventHandler("typed", func(ctx context.Context, event *ActivityCreatedEvent) error {
		gotActivityID = event.ActivityID
		return nil
	})
	require.NoError(t, bus.Subscribe(EventActivityCreated, handler))

	require.NoError(t, bus.Publish(context.Background(), NewActivityCreatedEvent(99, 1, "run", 5, 30, time.Now(), "manual")))
	assert.Equal(t, int64(99), gotActivityID)
}

func TestTypedEventHandlerRejectsWrongType(t *testing.T) {
	handler := NewTypedEventHandler("typed", func(ctx context.Context, event *ActivityCreatedEvent) error {
		return nil
	})

	err := handler.Handle(context.Background(), NewBadgeAwardedEvent(1, 1, "x"))
	assert.Error(t, err)
}

func TestHandlerFailureIsIsolated(t *testing.T) {
	bus := testBus(t)

	var secondRan bool
	require.NoError(t, bus.Subscribe(EventUserCreated, NewEventHandlerFunc("failing", func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})))
	require.NoError(t, bus.Subscribe(EventUserCreated, NewEventHandlerFunc("ok", func(ctx context.Context, event Event) error {
		secondRan = true
		return nil
	})))

	err := bus.Publish(context.Background(), NewUserCreatedEvent(1, "a@b.com", "a"))
	assert.Error(t, err)
	assert.True(t, secondRan)
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	bus := testBus(t)

	require.NoError(t, bus.Subscribe(EventUserCreated, NewEventHandlerFunc("panicky", func(ctx context.Context, event Event) error {
		panic("handler bug")
	})))

	err := bus.Publish(context.Background(), NewUserCreatedEvent(1, "a@b.com", "a"))
	assert.Error(t, err)
}

func TestUnsubscribe(t *testing.T) {
	bus := testBus(t)

	var calls int
	handler := NewEventHandlerFunc("once", func(ctx context.Context, event Event) error {
		calls++
		return nil
	})
	require.NoError(t, bus.Subscribe(EventBadgeAwarded, handler))
	require.NoError(t, bus.Publish(context.Background(), NewBadgeAwardedEvent(1, 1, "x")))

	require.NoError(t, bus.Unsubscribe(EventBadgeAwarded, handler))
	require.NoError(t, bus.Publish(context.Background(), NewBadgeAwardedEvent(2, 1, "y")))

	assert.Equal(t, 1, calls)
	assert.Error(t, bus.Unsubscribe(EventBadgeAwarded, handler))
}

func TestStats(t *testing.T) {
	bus := testBus(t)

	require.NoError(t, bus.Subscribe(EventBadgeAwarded, NewEventHandlerFunc("h", func(ctx context.Context, event Event) error {
		return nil
	})))
	require.NoError(t, bus.Publish(context.Background(), NewBadgeAwardedEvent(1, 1, "x")))

	stats := bus.Stats()
	assert.Equal(t, int64(1), stats.EventsPublished)
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(0), stats.EventsFailed)
	assert.Equal(t, 1, stats.HandlersCount)
}

func TestQueueFullRejectsPublishAsync(t *testing.T) {
	logger := zap.NewNop()
	bus := NewInMemoryEventBus(&EventBusConfig{
		BufferSize:     1,
		WorkerCount:    1,
		HandlerTimeout: time.Second,
	}, logger)
	// Workers never started, so the queue fills.

	require.NoError(t, bus.PublishAsync(context.Background(), NewBadgeAwardedEvent(1, 1, "x")))
	err := bus.PublishAsync(context.Background(), NewBadgeAwardedEvent(2, 1, "y"))
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	bus := testBus(t)
	assert.NoError(t, bus.Health())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	assert.Error(t, bus.Health())
}

func TestNilEventRejected(t *testing.T) {
	bus := testBus(t)
	assert.Error(t, bus.Publish(context.Background(), nil))
	assert.Error(t, bus.PublishAsync(context.Background(), nil))
}
