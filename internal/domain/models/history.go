package models

import (
	"sync"
	"time"
)

// PriceHistory is a time-bounded append log of price updates. Every push
// prunes entries older than the window relative to the pushed update's own
// timestamp, so behavior is deterministic under test regardless of wall
// clock. There is no reset operation; pruning alone empties the window.
type PriceHistory struct {
	mu      sync.Mutex
	window  time.Duration
	entries []*PriceUpdate
	last    *PriceUpdate
}

// NewPriceHistory creates a history with the given retention window.
func NewPriceHistory(window time.Duration) *PriceHistory {
	return &PriceHistory{window: window}
}

// Push appends u and drops entries whose timestamp falls outside the window
// relative to u's timestamp.
func (h *PriceHistory) Push(u *PriceUpdate) {
	if u == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, u)
	h.last = u

	// Arrival order is poll-cycle order, not timestamp order, so every
	// entry is checked rather than just a prefix.
	cutoff := u.Timestamp.Add(-h.window)
	kept := h.entries[:0]
	for _, e := range h.entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	h.entries = kept
}

// Direction compares the newest pushed update against the oldest entry still
// inside the window. Greater average means up, lesser means down, equal or
// empty means no signal. This is a trend over the window, not a tick delta.
func (h *PriceHistory) Direction() Direction {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last == nil || len(h.entries) == 0 {
		return DirectionNone
	}
	oldest := h.entries[0]
	switch h.last.Average.Cmp(oldest.Average) {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// Latest returns the most recently pushed update, or nil before the first push.
func (h *PriceHistory) Latest() *PriceUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Len reports how many entries survive the last prune.
func (h *PriceHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
