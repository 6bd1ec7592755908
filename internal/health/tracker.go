package health

import (
	"sync"

	"github.com/rs/zerolog"

	"api-firewall/internal/config"
)

// Tracker keeps one circuit breaker per upstream target, created lazily on
// first use.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   config.HealthConfig
	mu       sync.RWMutex
}

// NewTracker creates a tracker.
func NewTracker(cfg config.HealthConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// Circuit returns the breaker for a target, creating it if needed.
func (t *Tracker) Circuit(target string) *CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.circuits[target]
	t.mu.RUnlock()
	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, exists = t.circuits[target]; exists {
		return cb
	}
	cb = NewCircuitBreaker(target, t.config, t.logger)
	t.circuits[target] = cb
	return cb
}

// IsHealthy reports whether a target is accepting traffic. HALF-OPEN
// counts as healthy since probes are allowed through.
func (t *Tracker) IsHealthy(target string) bool {
	return t.Circuit(target).State() != StateOpen
}

// States returns a snapshot of every tracked target's breaker state.
func (t *Tracker) States() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.circuits))
	for name, cb := range t.circuits {
		out[name] = cb.State().String()
	}
	return out
}
