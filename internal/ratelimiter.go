package internal

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window cap per key. Keys here are uploader
// IPs, an unbounded population, so entries whose hits have all aged out of
// the window are evicted instead of accumulating for every address that ever
// uploaded.
type RateLimiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	limit     int
	window    time.Duration
	lastPrune time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the key may proceed now, recording the hit if so.
func (r *RateLimiter) Allow(key string) bool {
	return r.allowAt(key, time.Now())
}

func (r *RateLimiter) allowAt(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	windowStart := now.Add(-r.window)
	r.pruneIdle(windowStart, now)
	slice := r.hits[key]
	idx := 0
	for _, ts := range slice {
		if ts.After(windowStart) {
			slice[idx] = ts
			idx++
		}
	}
	slice = slice[:idx]
	if len(slice) >= r.limit {
		r.hits[key] = slice
		return false
	}
	slice = append(slice, now)
	r.hits[key] = slice
	return true
}

// pruneIdle drops keys whose hits all fell out of the window. It runs at most
// once per window so steady traffic does not rescan the whole map on every
// call.
func (r *RateLimiter) pruneIdle(windowStart, now time.Time) {
	if now.Sub(r.lastPrune) < r.window {
		return
	}
	r.lastPrune = now
	for key, slice := range r.hits {
		live := false
		for _, ts := range slice {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(r.hits, key)
		}
	}
}

func (r *RateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}
