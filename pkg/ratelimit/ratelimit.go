package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle for longer than the
// window are dropped on the next call to Allow.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	window   time.Duration
	maxHits  int
	now      func() time.Time
}

func NewLimiter(window time.Duration, maxHits int) *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		window:   window,
		maxHits:  maxHits,
		now:      time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	v, exists := l.visitors[key]
	if !exists {
		every := rate.Every(l.window / time.Duration(max(l.maxHits, 1)))
		v = &visitor{limiter: rate.NewLimiter(every, l.maxHits)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *Limiter) evict(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.window {
			delete(l.visitors, key)
		}
	}
}
