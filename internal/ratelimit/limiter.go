// Package ratelimit provides a small per-key limiter used to throttle
// the email-sending endpoints.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter hands out one token-bucket limiter per key (an email
// address here). Entries idle longer than the eviction window are
// dropped on the next lookup sweep, keeping the map bounded.
type KeyedLimiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	eviction time.Duration
	sweepAt  time.Time
}

func NewKeyedLimiter(interval time.Duration, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		entries:  make(map[string]*entry),
		limit:    rate.Every(interval),
		burst:    burst,
		eviction: 1 * time.Hour,
		sweepAt:  time.Now().Add(1 * time.Hour),
	}
}

// Allow reports whether the caller identified by key may proceed now.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if now.After(k.sweepAt) {
		for id, e := range k.entries {
			if now.Sub(e.lastSeen) > k.eviction {
				delete(k.entries, id)
			}
		}
		k.sweepAt = now.Add(k.eviction)
	}

	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now

	return e.limiter.Allow()
}
