package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/meit-app/meit/internal/model"
)

// Hub is an in-process fan-out of notification inserts keyed by customer.
// Publish blocks while a subscriber's buffer is full; a cancelled
// subscriber never blocks a publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*hubSub
	buffer int
}

type hubSub struct {
	ch   chan model.Notification
	done chan struct{}
	once sync.Once
}

// NewHub returns a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 0 {
		buffer = 0
	}
	return &Hub{subs: make(map[string]map[string]*hubSub), buffer: buffer}
}

// Subscribe registers a subscription for customerID.  The returned channel
// is never closed; callers stop reading after calling cancel.
func (h *Hub) Subscribe(customerID string) (<-chan model.Notification, func()) {
	id := uuid.NewString()
	s := &hubSub{ch: make(chan model.Notification, h.buffer), done: make(chan struct{})}

	h.mu.Lock()
	if h.subs[customerID] == nil {
		h.subs[customerID] = make(map[string]*hubSub)
	}
	h.subs[customerID][id] = s
	h.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			close(s.done)
			h.mu.Lock()
			delete(h.subs[customerID], id)
			if len(h.subs[customerID]) == 0 {
				delete(h.subs, customerID)
			}
			h.mu.Unlock()
		})
	}
	return s.ch, cancel
}

// Publish delivers n to every live subscription of n.CustomerID and returns
// how many received it.
func (h *Hub) Publish(n model.Notification) int {
	h.mu.RLock()
	targets := make([]*hubSub, 0, len(h.subs[n.CustomerID]))
	for _, s := range h.subs[n.CustomerID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		select {
		case s.ch <- n:
			delivered++
		case <-s.done:
		}
	}
	return delivered
}

// Subscribers reports the number of live subscriptions for customerID.
func (h *Hub) Subscribers(customerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[customerID])
}
