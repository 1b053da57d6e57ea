package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishReachesAllSubscribers(t *testing.T) {
	b := NewBus(8)

	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: EventSessionCreated, SessionID: "s1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventSessionCreated, ev.Type)
			assert.Equal(t, "s1", ev.SessionID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusPreservesOrder(t *testing.T) {
	b := NewBus(16)
	ch, unsub := b.Subscribe()
	defer unsub()

	types := []EventType{
		EventSessionCreated, EventMessageReceived,
		EventMessageStream, EventMessageComplete,
	}
	for _, typ := range types {
		b.Publish(Event{Type: typ, SessionID: "s1"})
	}

	for _, want := range types {
		ev := <-ch
		assert.Equal(t, want, ev.Type)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(8)
	ch, unsub := b.Subscribe()

	require.Equal(t, 1, b.SubscriberCount())
	unsub()
	assert.Zero(t, b.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Unsubscribing twice is safe.
	unsub()
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	b := NewBus(8)
	b.Publish(Event{Type: EventSessionCreated, SessionID: "s1"})
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus(1)
	ch, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: EventMessageStream, SessionID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}

	// The single buffered event is still delivered.
	ev := <-ch
	assert.Equal(t, EventMessageStream, ev.Type)
}

func TestBusClose(t *testing.T) {
	b := NewBus(8)
	ch, _ := b.Subscribe()

	b.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.SubscriberCount())

	// Publishing and closing again are no-ops.
	b.Publish(Event{Type: EventSessionCreated})
	b.Close()

	// Subscribing after close yields a closed channel.
	ch2, unsub := b.Subscribe()
	_, open = <-ch2
	assert.False(t, open)
	unsub()
}
