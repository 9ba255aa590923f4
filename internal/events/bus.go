package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// #region bus

const defaultBuffer = 64

// Bus fans events out to per-session subscribers. Events for one session
// are delivered in publish order; no ordering is promised across sessions.
// A subscriber that falls more than a buffer behind loses oldest events
// rather than stalling the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]*subscriber
	buffer int
	logger *zap.SugaredLogger
}

type subscriber struct {
	ch chan Event
}

// NewBus creates a bus. A nil logger is replaced with a no-op logger.
func NewBus(logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bus{
		subs:   make(map[string][]*subscriber),
		buffer: defaultBuffer,
		logger: logger,
	}
}

// #endregion bus

// #region subscribe

// Subscribe returns a channel of events for one session and a cancel
// function that must be called to release the subscription.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], sub)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[sessionID]
		for i, s := range list {
			if s == sub {
				b.subs[sessionID] = append(list[:i], list[i+1:]...)
				close(sub.ch)
				break
			}
		}
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
	}
	return sub.ch, cancel
}

// #endregion subscribe

// #region publish

// Publish delivers an event to every subscriber of its session. The
// timestamp is stamped here when the producer left it zero, so per-session
// ordering matches publish order.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			// Slow consumer: drop the oldest buffered event to make room.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
			b.logger.Warnw("event subscriber lagging, dropped oldest",
				"session", ev.SessionID, "type", ev.Type)
		}
	}
}

// #endregion publish
