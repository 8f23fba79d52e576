// Package events carries server lifecycle notifications to observers.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventClientConnected is emitted when a worker registers a new client
	EventClientConnected EventType = "client_connected"
	// EventClientDisconnected is emitted when a worker finishes its cleanup
	EventClientDisconnected EventType = "client_disconnected"
	// EventCancelBroadcast is emitted when every live client is asked to stop
	EventCancelBroadcast EventType = "cancel_broadcast"
	// EventPaused is emitted when the operator stops the pause gate
	EventPaused EventType = "paused"
	// EventResumed is emitted when the operator releases the pause gate
	EventResumed EventType = "resumed"
	// EventDrainStart is emitted when shutdown starts draining workers
	EventDrainStart EventType = "drain_start"
	// EventDrainComplete is emitted once no worker is left
	EventDrainComplete EventType = "drain_complete"
)

// Event is a single lifecycle notification
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  uint64    `json:"client_id,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	RemoteAddr string `json:"remote_addr,omitempty"`
	Count      int    `json:"count,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// NewClientConnectedEvent creates a client connected event
func NewClientConnectedEvent(clientID uint64, remoteAddr string) Event {
	return Event{
		Type:      EventClientConnected,
		Timestamp: time.Now(),
		ClientID:  clientID,
		Data: EventData{
			RemoteAddr: remoteAddr,
		},
	}
}

// NewClientDisconnectedEvent creates a client disconnected event. reason is
// one of "eof", "cancelled", "read error" or "write error".
func NewClientDisconnectedEvent(clientID uint64, remoteAddr, reason string) Event {
	return Event{
		Type:      EventClientDisconnected,
		Timestamp: time.Now(),
		ClientID:  clientID,
		Data: EventData{
			RemoteAddr: remoteAddr,
			Reason:     reason,
		},
	}
}

// NewCancelBroadcastEvent records how many clients were signalled and why
func NewCancelBroadcastEvent(count int, reason string) Event {
	return Event{
		Type:      EventCancelBroadcast,
		Timestamp: time.Now(),
		Data: EventData{
			Count:  count,
			Reason: reason,
		},
	}
}

// NewPausedEvent creates a paused event
func NewPausedEvent() Event {
	return Event{Type: EventPaused, Timestamp: time.Now()}
}

// NewResumedEvent creates a resumed event
func NewResumedEvent() Event {
	return Event{Type: EventResumed, Timestamp: time.Now()}
}

// NewDrainStartEvent records the number of workers live when draining began
func NewDrainStartEvent(live int) Event {
	return Event{
		Type:      EventDrainStart,
		Timestamp: time.Now(),
		Data: EventData{
			Count: live,
		},
	}
}

// NewDrainCompleteEvent records how many tree nodes were released afterwards
func NewDrainCompleteEvent(released int) Event {
	return Event{
		Type:      EventDrainComplete,
		Timestamp: time.Now(),
		Data: EventData{
			Count: released,
		},
	}
}
