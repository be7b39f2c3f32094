package httpapi

import (
	"sync"

	"presensi/internal/poller"
)

// Hub fans snapshot changes out to stream subscribers. Slow subscribers
// miss events instead of blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[chan poller.Change]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan poller.Change]struct{})}
}

// Subscribe registers a subscriber. The returned func unregisters it and
// closes the channel.
func (h *Hub) Subscribe() (<-chan poller.Change, func()) {
	ch := make(chan poller.Change, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers c to every subscriber with room in its buffer.
func (h *Hub) Publish(c poller.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
