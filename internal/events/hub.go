package events

import (
	"context"
	"sync"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

// Hub fans request events out to in-process subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan domain.RequestEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan domain.RequestEvent]struct{}{}}
}

func (h *Hub) Subscribe(buffer int) chan domain.RequestEvent {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan domain.RequestEvent, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan domain.RequestEvent) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	if exists {
		delete(h.subs, ch)
	}
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Publish(_ context.Context, event domain.RequestEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}
