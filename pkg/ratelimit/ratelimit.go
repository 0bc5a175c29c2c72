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

// Limiter keeps one token bucket per key. Each bucket holds maxHits tokens and
// refills at maxHits per window. A bucket idle for a full window is back at
// capacity, so it is dropped on the next sweep.
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLimiter(window time.Duration, maxHits int) *Limiter {
	if maxHits <= 0 {
		maxHits = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	return &Limiter{
		limiters:  make(map[string]*entry),
		limit:     rate.Every(window / time.Duration(maxHits)),
		burst:     maxHits,
		idle:      window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = &entry{limiter: limiter, lastSeen: now}
	return limiter
}

// sweep must be called with mu held
func (l *Limiter) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
