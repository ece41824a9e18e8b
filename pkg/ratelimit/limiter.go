package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a client's limiter is kept after its last request
const idleTTL = 10 * time.Minute

// KeyedLimiter hands out one token bucket per key (usually a client IP)
type KeyedLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows perMinute requests per key with the given burst
func NewKeyedLimiter(perMinute, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}

	return &KeyedLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.sweep(now)

	e, ok := k.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// sweep drops idle limiters; callers hold k.mu
func (k *KeyedLimiter) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < idleTTL {
		return
	}
	for key, e := range k.limiters {
		if now.Sub(e.lastSeen) > idleTTL {
			delete(k.limiters, key)
		}
	}
	k.lastSweep = now
}

// Len returns the number of tracked keys
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
