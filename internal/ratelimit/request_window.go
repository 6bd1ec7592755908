package ratelimit

import (
	"sync"
	"time"
)

// RequestLimiter is a sliding-window request counter. It admits at most
// limit requests per trailing 60 seconds; one call counts one unit
// regardless of payload size.
type RequestLimiter struct {
	clock   Clock
	samples []time.Time
	limit   int
	mu      sync.Mutex
}

// NewRequestLimiter creates a request limiter with the given per-minute limit.
func NewRequestLimiter(limit int) *RequestLimiter {
	return newRequestLimiter(limit, RealClock())
}

func newRequestLimiter(limit int, clock Clock) *RequestLimiter {
	return &RequestLimiter{limit: limit, clock: clock}
}

// Allow purges expired samples and admits the request if the window has
// headroom. Rejected calls leave no sample behind.
func (l *RequestLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.purge(now)

	if len(l.samples) >= l.limit {
		return false
	}

	l.samples = append(l.samples, now)
	return true
}

// Used returns the number of requests currently counted in the window.
func (l *RequestLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge(l.clock.Now())
	return len(l.samples)
}

// purge drops samples older than the window. Samples are appended in time
// order, so the first surviving index bounds the cut.
func (l *RequestLimiter) purge(now time.Time) {
	cutoff := now.Add(-Window)
	idx := 0
	for idx < len(l.samples) && !l.samples[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.samples = append(l.samples[:0], l.samples[idx:]...)
	}
}
