package notifications

import (
	"log/slog"
	"sync"
)

const subscriberBuffer = 16

// Hub fans newly added entries out to live subscribers of a participant.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Entry]struct{}
	closed bool
	log    *slog.Logger
}

// NewHub returns an empty Hub. A nil logger discards output.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{subs: map[string]map[chan Entry]struct{}{}, log: logger}
}

// Subscribe registers a subscriber for username. The channel is closed by
// cancel or by Close.
func (h *Hub) Subscribe(username string) (<-chan Entry, func()) {
	ch := make(chan Entry, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[username] == nil {
		h.subs[username] = map[chan Entry]struct{}{}
	}
	h.subs[username][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[username][ch]; !ok {
				return
			}
			delete(h.subs[username], ch)
			if len(h.subs[username]) == 0 {
				delete(h.subs, username)
			}
			close(ch)
		})
	}
}

// Publish sends e to every subscriber of username. Slow subscribers whose
// buffer is full miss the entry.
func (h *Hub) Publish(username string, e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[username] {
		select {
		case ch <- e:
		default:
			h.log.Warn("dropping notification for slow subscriber", "username", username, "name", e.Name)
		}
	}
}

// Subscribers returns the number of live subscribers of username.
func (h *Hub) Subscribers(username string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[username])
}

// Close closes every subscriber channel and rejects new subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, chans := range h.subs {
		for ch := range chans {
			close(ch)
		}
	}
	h.subs = map[string]map[chan Entry]struct{}{}
}
