package app

import "sync"

// History keeps the most recent run results in memory.
type History struct {
	mu    sync.RWMutex
	items []RunResult
	next  int
	full  bool
}

// NewHistory keeps up to size results; size below 1 means one.
func NewHistory(size int) *History {
	return &History{items: make([]RunResult, max(size, 1))}
}

// Add records a result, evicting the oldest when full.
func (h *History) Add(r RunResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[h.next] = r
	h.next = (h.next + 1) % len(h.items)
	if h.next == 0 {
		h.full = true
	}
}

// List returns results newest first.
func (h *History) List() []RunResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.items)
	}
	out := make([]RunResult, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, h.items[(h.next-i+len(h.items))%len(h.items)])
	}
	return out
}

// Get returns the result with the given run id.
func (h *History) Get(id string) (RunResult, bool) {
	for _, r := range h.List() {
		if r.ID == id {
			return r, true
		}
	}
	return RunResult{}, false
}
