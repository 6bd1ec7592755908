package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLimiterAllowsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := newRequestLimiter(3, clock)

	for i := range 3 {
		assert.True(t, limiter.Allow(), "request %d should be admitted", i)
	}
	assert.False(t, limiter.Allow())
	assert.Equal(t, 3, limiter.Used())
}

func TestRequestLimiterRejectionLeavesNoTrace(t *testing.T) {
	clock := newFakeClock()
	limiter := newRequestLimiter(1, clock)

	require.True(t, limiter.Allow())
	for range 10 {
		assert.False(t, limiter.Allow())
	}
	assert.Equal(t, 1, limiter.Used())

	// The single admitted request expires; rejections must not have
	// extended the window.
	clock.advance(Window + time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestRequestLimiterSlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := newRequestLimiter(2, clock)

	require.True(t, limiter.Allow())
	clock.advance(30 * time.Second)
	require.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	// First sample falls out at t=60s, second remains until t=90s.
	clock.advance(31 * time.Second)
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestRequestLimiterZeroLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := newRequestLimiter(0, clock)
	assert.False(t, limiter.Allow())
}
