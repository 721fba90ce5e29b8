package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventHubDeliversToOwner(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe(1)
	defer hub.Unsubscribe(ch)

	hub.Publish(Event{Type: "entry.created", UserID: 1, ID: 42})

	ev := receiveEvent(t, ch)
	assert.Equal(t, "entry.created", ev.Type)
	assert.Equal(t, int64(42), ev.ID)
}

func TestEventHubIsolatesUsers(t *testing.T) {
	hub := NewEventHub()
	mine := hub.Subscribe(1)
	theirs := hub.Subscribe(2)
	defer hub.Unsubscribe(mine)
	defer hub.Unsubscribe(theirs)

	hub.Publish(Event{Type: "entry.deleted", UserID: 1, ID: 7})

	receiveEvent(t, mine)
	select {
	case ev := <-theirs:
		t.Fatalf("user 2 received another user's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventHubBroadcastsMessages(t *testing.T) {
	hub := NewEventHub()
	a := hub.Subscribe(1)
	b := hub.Subscribe(2)
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(Event{Type: "message.created", UserID: 1, ID: 3})

	assert.Equal(t, int64(3), receiveEvent(t, a).ID)
	assert.Equal(t, int64(3), receiveEvent(t, b).ID)
}

func TestEventHubPublishNeverBlocks(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe(1)
	defer hub.Unsubscribe(ch)

	// Overflow the subscriber buffer; publishing must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: "entry.created", UserID: 1, ID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestEventHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewEventHub()
	ch := hub.Subscribe(1)
	hub.Unsubscribe(ch)

	_, open := <-ch
	require.False(t, open)

	// Double unsubscribe must not panic.
	hub.Unsubscribe(ch)
}
