// Package ratelimit implements the per-player request counter shared by
// /order, /cancel, and /inventory (spec.md §6). Tracked here on the
// standard library rather than an ecosystem library: the examples'
// token-bucket client (go-redis) models a rolling window, but spec.md
// §9 requires a hard reset to zero every second, which a rolling-window
// bucket cannot express without changing its observable burst behavior
// at the window boundary — see DESIGN.md.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces limit requests per player per reset period. The
// counter is hard-reset to zero on every tick rather than decayed,
// which intentionally permits bursting across the tick boundary
// (spec.md §9).
type Limiter struct {
	limit  int
	mu     sync.Mutex
	counts map[string]int
}

// New returns a Limiter allowing limit requests per player between
// resets.
func New(limit int) *Limiter {
	return &Limiter{
		limit:  limit,
		counts: make(map[string]int),
	}
}

// Allow increments player's counter and reports whether the request is
// within the limit for the current period.
func (l *Limiter) Allow(player string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[player]++
	return l.counts[player] <= l.limit
}

// Run resets every player's counter to zero once per period until stop
// is closed. It replaces the counts map outright rather than zeroing
// entries in place, which also bounds its memory to active players.
func (l *Limiter) Run(stop <-chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			l.counts = make(map[string]int, len(l.counts))
			l.mu.Unlock()
		}
	}
}
