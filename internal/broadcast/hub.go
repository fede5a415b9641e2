package broadcast

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber ring buffer depth. Publication
// never blocks on a full buffer — the oldest undelivered frame is dropped
// and the subscriber's Lag counter increments, per spec.md §4.3.
const DefaultBufferSize = 256

// Subscription is a single subscriber's view of a Hub. Frames arrive on C;
// Close unregisters the subscription from its Hub. A subscriber that falls
// behind must treat the next BookSnapshot it receives as authoritative —
// the Hub never replays dropped frames.
type Subscription struct {
	id  uint64
	hub *Hub
	c   chan Frame
	lag atomic.Uint64
}

// C returns the channel frames arrive on.
func (s *Subscription) C() <-chan Frame {
	return s.c
}

// Lag returns the count of frames dropped due to a full buffer since
// subscribing.
func (s *Subscription) Lag() uint64 {
	return s.lag.Load()
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// Hub fans out frames for a single pair to every current subscriber.
// Owned by the registry, not the engine, to avoid a cycle between broadcast
// subscribers and engine state (spec.md §9).
type Hub struct {
	bufferSize int

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewHub constructs an empty hub with the default per-subscriber buffer
// size.
func NewHub() *Hub {
	return &Hub{bufferSize: DefaultBufferSize, subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscriber and immediately seeds it with one
// frame (a BookSnapshot in normal use). Callers must take the seed snapshot
// and call Subscribe while still holding the engine's lock, so the seed is
// consistent with every frame published afterwards.
func (h *Hub) Subscribe(seed Frame) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:  h.nextID,
		hub: h,
		c:   make(chan Frame, h.bufferSize),
	}
	sub.c <- seed
	h.subs[sub.id] = sub
	return sub
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.c)
	}
}

// Publish fans frame out to every current subscriber, non-blocking. Called
// while the owning engine's lock is still held, so publication order
// matches match/cancel order exactly, per spec.md §4.3/§5.
func (h *Hub) Publish(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		publishOne(sub, frame)
	}
}

func publishOne(sub *Subscription, frame Frame) {
	select {
	case sub.c <- frame:
		return
	default:
	}

	// Buffer full: drop the oldest frame to make room, then retry once.
	select {
	case <-sub.c:
		sub.lag.Add(1)
	default:
	}

	select {
	case sub.c <- frame:
	default:
		// Lost a race with another drain; count this frame as dropped too
		// rather than block the publisher.
		sub.lag.Add(1)
	}
}
