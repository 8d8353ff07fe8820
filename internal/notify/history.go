package notify

import "sync"

// DefaultHistoryCapacity is the number of events kept when no capacity is given.
const DefaultHistoryCapacity = 100

// History is a bounded, newest-first record of published events.
//
// It is a fixed ring buffer: Insert is O(1) and evicts the oldest entry once
// the buffer is full. Eviction is strict FIFO by insertion order.
type History struct {
	mu   sync.RWMutex
	buf  []Event
	head int // index of the next write
	n    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Event, capacity)}
}

func (h *History) Insert(e Event) {
	h.mu.Lock()
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
	if h.n < len(h.buf) {
		h.n++
	}
	h.mu.Unlock()
}

// All returns a newest-first copy. Mutating the result (including Meta maps)
// does not affect the store.
func (h *History) All() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, 0, h.n)
	for i := 1; i <= h.n; i++ {
		idx := (h.head - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx].clone())
	}
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	clear(h.buf)
	h.head = 0
	h.n = 0
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

func (h *History) Cap() int { return len(h.buf) }
