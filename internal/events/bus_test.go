package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe("sess-1")
	defer cancel()

	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: TypeTurnCompleted, SessionID: "sess-1", Turn: i})
	}

	for i := 0; i < 10; i++ {
		select {
		case ev := <-ch:
			assert.Equal(t, i, ev.Turn, "events must arrive in publish order")
			assert.False(t, ev.Timestamp.IsZero(), "publish must stamp the timestamp")
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBusIsolatesSessions(t *testing.T) {
	bus := NewBus(nil)
	ch1, cancel1 := bus.Subscribe("sess-1")
	defer cancel1()
	ch2, cancel2 := bus.Subscribe("sess-2")
	defer cancel2()

	bus.Publish(Event{Type: TypeStatusChange, SessionID: "sess-1", Status: "active"})

	select {
	case ev := <-ch1:
		assert.Equal(t, "sess-1", ev.SessionID)
	case <-time.After(time.Second):
		t.Fatal("subscriber for sess-1 got nothing")
	}
	select {
	case ev := <-ch2:
		t.Fatalf("sess-2 subscriber received foreign event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus(nil)
	chA, cancelA := bus.Subscribe("sess-1")
	defer cancelA()
	chB, cancelB := bus.Subscribe("sess-1")
	defer cancelB()

	bus.Publish(Event{Type: TypeDiscovery, SessionID: "sess-1", Discovery: "x"})

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeDiscovery, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("fan-out missed a subscriber")
		}
	}
}

func TestBusDropsOldestWhenSlow(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe("sess-1")
	defer cancel()

	// Never read: overflow the buffer and keep publishing.
	total := defaultBuffer + 10
	for i := 0; i < total; i++ {
		bus.Publish(Event{Type: TypeHeartbeat, SessionID: "sess-1", Turn: i})
	}

	// The first buffered events were dropped; the newest survived.
	var got []int
	for {
		select {
		case ev := <-ch:
			got = append(got, ev.Turn)
		default:
			require.Len(t, got, defaultBuffer)
			assert.Equal(t, total-1, got[len(got)-1], "newest event must survive")
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1], "surviving events stay ordered")
			}
			return
		}
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Subscribe("sess-1")
	cancel()

	_, open := <-ch
	assert.False(t, open, "cancel must close the subscription channel")

	// Publishing after cancel must not panic.
	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: TypeError, SessionID: "sess-1", Error: "late"})
	})
}
