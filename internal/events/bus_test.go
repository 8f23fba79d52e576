package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestNewBus(t *testing.T) {
	bus := NewBus()
	require.NotNil(t, bus)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBusSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	assert.Equal(t, 2, bus.SubscriberCount())

	bus.Unsubscribe(ch1)
	assert.Equal(t, 1, bus.SubscriberCount())

	_, ok := <-ch1
	assert.False(t, ok, "unsubscribed channel should be closed")
	assert.NotNil(t, ch2)
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(NewClientConnectedEvent(7, "127.0.0.1:5000"))

	ev := receive(t, ch)
	assert.Equal(t, EventClientConnected, ev.Type)
	assert.Equal(t, uint64(7), ev.ClientID)
	assert.Equal(t, "127.0.0.1:5000", ev.Data.RemoteAddr)
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewPausedEvent())

	for _, ch := range []<-chan Event{ch1, ch2} {
		assert.Equal(t, EventPaused, receive(t, ch).Type)
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1
	ch := bus.Subscribe()

	bus.Publish(NewPausedEvent())
	bus.Publish(NewResumedEvent())
	bus.Publish(NewPausedEvent())

	assert.Equal(t, EventPaused, receive(t, ch).Type)
	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestBusSequence(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(NewPausedEvent())
	bus.Publish(NewResumedEvent())

	assert.Equal(t, uint64(1), receive(t, ch).Seq)
	assert.Equal(t, uint64(2), receive(t, ch).Seq)
}

func TestBusSubscribeFiltered(t *testing.T) {
	bus := NewBus()
	drains := bus.Subscribe(EventDrainStart, EventDrainComplete)
	all := bus.Subscribe()

	bus.Publish(NewPausedEvent())
	bus.Publish(NewDrainStartEvent(3))

	ev := receive(t, drains)
	assert.Equal(t, EventDrainStart, ev.Type)
	assert.Equal(t, uint64(2), ev.Seq)
	select {
	case extra := <-drains:
		t.Fatalf("unexpected event %s", extra.Type)
	default:
	}

	assert.Equal(t, EventPaused, receive(t, all).Type)
	assert.Equal(t, EventDrainStart, receive(t, all).Type)
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(NewResumedEvent()) })
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Close()

	assert.Equal(t, 0, bus.SubscriberCount())
	_, ok := <-ch
	assert.False(t, ok)

	assert.NotPanics(t, func() { bus.Publish(NewPausedEvent()) })

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribe after close returns a closed channel")
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestEventConstructors(t *testing.T) {
	t.Run("Disconnected", func(t *testing.T) {
		ev := NewClientDisconnectedEvent(3, "pipe", "cancelled")
		assert.Equal(t, EventClientDisconnected, ev.Type)
		assert.Equal(t, "cancelled", ev.Data.Reason)
		assert.False(t, ev.Timestamp.IsZero())
	})

	t.Run("CancelBroadcast", func(t *testing.T) {
		ev := NewCancelBroadcastEvent(4, "signal")
		assert.Equal(t, EventCancelBroadcast, ev.Type)
		assert.Equal(t, 4, ev.Data.Count)
		assert.Equal(t, "signal", ev.Data.Reason)
	})

	t.Run("Drain", func(t *testing.T) {
		assert.Equal(t, 2, NewDrainStartEvent(2).Data.Count)
		complete := NewDrainCompleteEvent(10)
		assert.Equal(t, EventDrainComplete, complete.Type)
		assert.Equal(t, 10, complete.Data.Count)
	})
}
