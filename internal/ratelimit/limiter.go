// Package ratelimit provides admission control for api-firewall.
//
// Two algorithm families are available:
//   - Sliding window: time-stamped samples over a trailing 60s interval,
//     matching provider TPM/RPM accounting exactly. This is the default.
//   - Token bucket: golang.org/x/time/rate for smooth traffic shaping,
//     selectable via filters.strategy = "token_bucket".
//
// All implementations are safe for concurrent use: admission decisions are
// serialized so two concurrent requests can never both observe headroom and
// jointly exceed the limit.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Window is the trailing interval every limiter operates over.
const Window = 60 * time.Second

// ErrContextCancelled is returned when the context is canceled while a
// caller is suspended waiting for capacity.
var ErrContextCancelled = errors.New("ratelimit: context canceled")

// RequestAdmitter admits or rejects a single request, without blocking.
type RequestAdmitter interface {
	// Allow returns true and records the request if it fits in the
	// current window, false otherwise.
	Allow() bool
}

// TokenAdmitter admits a token amount, suspending the caller until enough
// capacity has freed.
type TokenAdmitter interface {
	// Admit blocks until tokens fit in the current window, then records
	// them. Returns ErrContextCancelled if ctx ends first.
	Admit(ctx context.Context, tokens int) error
}

// Clock abstracts wall time and suspension so limiter behavior can be
// verified with a simulated clock.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrContextCancelled
	case <-timer.C:
		return nil
	}
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
