package services

import (
	"sync"

	"github.com/username/coinledger/backend/src/logger"
)

// Event is one change notification pushed to connected clients so they
// can refresh their in-memory entry list or feeds.
type Event struct {
	Type   string `json:"type"`   // e.g. "entry.created", "goal.updated", "message.created"
	UserID int64  `json:"user_id"`
	ID     int64  `json:"id,omitempty"`
}

// EventHub fans change notifications out to subscribers. Publishing
// never blocks: a subscriber that cannot keep up loses events rather
// than stalling the writer.
type EventHub struct {
	mu   sync.RWMutex
	subs map[chan Event]int64 // channel -> subscriber's user ID
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]int64)}
}

// Subscribe registers a listener for the given user. Events for other
// users are not delivered, except feed-wide message events.
func (h *EventHub) Subscribe(userID int64) chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = userID
	h.mu.Unlock()
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *EventHub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, subUserID := range h.subs {
		if event.UserID != subUserID && !isBroadcast(event.Type) {
			continue
		}
		select {
		case ch <- event:
		default:
			logger.L.Warn("Dropping event for slow subscriber", "type", event.Type, "userID", subUserID)
		}
	}
}

// isBroadcast reports whether an event type goes to every subscriber.
// The chat/activity feed is shared; ledger and goal changes are private.
func isBroadcast(eventType string) bool {
	return eventType == "message.created" || eventType == "message.deleted"
}
