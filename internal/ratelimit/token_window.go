package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// safetyBuffer keeps admitted usage below the nominal TPM limit so
	// estimation error does not trip the upstream's own limiter.
	safetyBuffer = 0.95

	// waitSlack is added to every computed wait so the re-check runs
	// strictly after the relevant samples have aged out.
	waitSlack = 100 * time.Millisecond
)

type tokenSample struct {
	at     time.Time
	tokens int
}

// TokenLimiter is a sliding-window tokens-per-minute limiter. Admit
// suspends the caller until the requested amount fits under
// limit * safetyBuffer for the trailing 60 seconds.
type TokenLimiter struct {
	clock   Clock
	samples []tokenSample
	limit   int
	mu      sync.Mutex
}

// NewTokenLimiter creates a token limiter with the given TPM limit.
func NewTokenLimiter(tpmLimit int) *TokenLimiter {
	return newTokenLimiter(tpmLimit, RealClock())
}

func newTokenLimiter(tpmLimit int, clock Clock) *TokenLimiter {
	return &TokenLimiter{limit: tpmLimit, clock: clock}
}

// Admit blocks until tokens fit in the window, then records them.
//
// The check runs in a loop rather than recursing after each wait, so
// repeated contention cannot grow the stack. A request larger than the
// effective limit can never be admitted; such callers stay suspended until
// their context ends, so Admit should always run under a bounded context.
func (l *TokenLimiter) Admit(ctx context.Context, tokens int) error {
	for {
		wait, admitted := l.tryAdmit(tokens)
		if admitted {
			return nil
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit performs one atomic admission attempt. Returns (0, true) on
// success, or the wait before the next attempt and false.
func (l *TokenLimiter) tryAdmit(tokens int) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.purge(now)

	effective := int(float64(l.limit) * safetyBuffer)
	usage := l.usage()
	if usage+tokens <= effective {
		l.samples = append(l.samples, tokenSample{at: now, tokens: tokens})
		return 0, true
	}

	return l.waitFor(now, usage, tokens, effective), false
}

// waitFor computes the minimum wait until enough samples age out of the
// window to admit the request. Samples are stored in arrival order, which
// is also expiry order; freed capacity accumulates entry by entry until the
// request fits. If no prefix of the window frees enough, the full window
// length is returned.
func (l *TokenLimiter) waitFor(now time.Time, usage, tokens, effective int) time.Duration {
	freed := 0
	for _, sample := range l.samples {
		freed += sample.tokens
		if usage-freed+tokens <= effective {
			remaining := sample.at.Add(Window).Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			return remaining + waitSlack
		}
	}
	return Window
}

// Used returns the token usage currently counted in the window.
func (l *TokenLimiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge(l.clock.Now())
	return l.usage()
}

func (l *TokenLimiter) usage() int {
	total := 0
	for _, s := range l.samples {
		total += s.tokens
	}
	return total
}

func (l *TokenLimiter) purge(now time.Time) {
	cutoff := now.Add(-Window)
	idx := 0
	for idx < len(l.samples) && !l.samples[idx].at.After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.samples = append(l.samples[:0], l.samples[idx:]...)
	}
}
