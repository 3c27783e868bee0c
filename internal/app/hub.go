package app

import (
	"context"
	"sync"

	"github.com/shanekizito/Thinkly/internal/domain"
)

const subscriberBuffer = 32

// Hub fans presentation events out to every live subscriber of a user.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.Event]struct{})}
}

// Subscribe registers a listener for uid. The caller must invoke cancel to avoid leaks.
func (h *Hub) Subscribe(uid string) (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subscribers[uid]
	if !ok {
		set = make(map[chan domain.Event]struct{})
		h.subscribers[uid] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subscribers[uid]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subscribers, uid)
				}
			}
		})
	}
	return ch, cancel
}

// Publish queues ev for every subscriber of ev.UserID. Events are queued, not
// coalesced, so several badges earned together are all delivered.
func (h *Hub) Publish(_ context.Context, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[ev.UserID] {
		select {
		case ch <- ev:
		default:
			// slow consumer: drop the oldest queued event to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Subscribers reports how many listeners uid currently has.
func (h *Hub) Subscribers(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[uid])
}
