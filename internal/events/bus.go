package events

import (
	"sync"
)

const defaultBufferSize = 100

type subscriber struct {
	ch    chan Event
	types map[EventType]bool // nil receives every type
}

func (s *subscriber) wants(t EventType) bool {
	return s.types == nil || s.types[t]
}

// Bus fans lifecycle events out to subscribers. Every published event gets
// the next sequence number, and subscribers see events in that order.
type Bus struct {
	mu          sync.Mutex
	subscribers map[<-chan Event]*subscriber
	bufferSize  int
	seq         uint64
	dropped     uint64
	closed      bool
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[<-chan Event]*subscriber),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe returns a channel that receives events of the given types, or of
// every type when none are given. After Close it returns an already closed
// channel.
func (b *Bus) Subscribe(types ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, b.bufferSize)}
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	b.subscribers[sub.ch] = sub
	return sub.ch
}

// Unsubscribe removes a subscriber channel and closes it
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(sub.ch)
	}
}

// Publish stamps event with the next sequence number and hands it to every
// interested subscriber. A subscriber whose buffer is full misses the event
// and the drop is counted. A nil or closed bus drops everything.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.seq++
	event.Seq = b.seq
	for _, sub := range b.subscribers {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped++
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was not keeping up
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, ch)
	}
}
