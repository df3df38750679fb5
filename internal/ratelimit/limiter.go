// Package ratelimit implements the fixed-window limiter used by the chat
// gate. Windows are discrete: a burst at a window boundary is an accepted
// tradeoff over a sliding window or token bucket.
package ratelimit

import (
	"sync"
	"time"

	"github.com/lvyanru/stockchat/internal/domain"
)

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow counts requests per key in non-overlapping time windows.
// The table is process-wide shared state, so every check-then-update runs
// under the mutex.
type FixedWindow struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	entries  map[string]*entry

	now func() time.Time // stubbed in tests
}

// NewFixedWindow creates a limiter admitting capacity requests per window
// for each key.
func NewFixedWindow(capacity int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		capacity: capacity,
		window:   window,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

// CheckAndRecord implements domain.RateLimiter. The first request for a key,
// or the first after its window elapsed, starts a fresh window with count 1.
// Within a window the count grows until capacity; a rejected request leaves
// the count untouched since the window was already full.
func (l *FixedWindow) CheckAndRecord(key string) domain.RateDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return domain.RateDecision{Allowed: true}
	}

	if e.count >= l.capacity {
		return domain.RateDecision{Allowed: false, ResetAt: e.resetAt}
	}

	e.count++
	return domain.RateDecision{Allowed: true}
}
