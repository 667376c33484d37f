package round

import (
	"sync"
)

// Hub fans settled-round updates out to per-player subscribers (balance
// displays, live feeds). Sends never block the settlement path.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan RoundUpdate
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan RoundUpdate),
	}
}

func (h *Hub) Subscribe(playerID string) <-chan RoundUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan RoundUpdate, 10)
	h.subscribers[playerID] = append(h.subscribers[playerID], ch)
	return ch
}

// Unsubscribe drops a subscriber and closes its channel. Safe against Notify:
// both run under the map lock, so a send on the closed channel cannot happen.
func (h *Hub) Unsubscribe(playerID string, ch <-chan RoundUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[playerID]
	for i, c := range subs {
		if (<-chan RoundUpdate)(c) == ch {
			h.subscribers[playerID] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(h.subscribers[playerID]) == 0 {
		delete(h.subscribers, playerID)
	}
}

func (h *Hub) Notify(playerID string, update RoundUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[playerID] {
		select {
		case ch <- update:
		default:
			// Channel full, skip (don't block)
		}
	}
}
