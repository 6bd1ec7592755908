package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimitedRate stands in for zero/negative limits.
const unlimitedRate = 1_000_000

// TokenBucketLimiter implements both RequestAdmitter and TokenAdmitter
// using golang.org/x/time/rate.
//
// Two buckets are kept: one for requests per minute, one for tokens per
// minute. Burst equals the limit so a full minute's capacity can be
// consumed instantly and then refills gradually. This avoids the boundary
// burst problem of fixed windows at the cost of not matching provider
// window accounting exactly; the sliding-window limiters remain the
// default.
type TokenBucketLimiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

// NewTokenBucketLimiter creates a bucket limiter with per-minute request
// and token limits. Zero or negative limits are treated as unlimited.
func NewTokenBucketLimiter(rpm, tpm int) *TokenBucketLimiter {
	if rpm <= 0 {
		rpm = unlimitedRate
	}
	if tpm <= 0 {
		tpm = unlimitedRate
	}
	return &TokenBucketLimiter{
		requests: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		tokens:   rate.NewLimiter(rate.Limit(float64(tpm)/60.0), tpm),
	}
}

// Allow reports whether a request fits the RPM bucket, consuming one unit
// when it does.
func (l *TokenBucketLimiter) Allow() bool {
	return l.requests.Allow()
}

// Admit blocks until tokens fit the TPM bucket.
func (l *TokenBucketLimiter) Admit(ctx context.Context, tokens int) error {
	if err := l.tokens.WaitN(ctx, tokens); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}
