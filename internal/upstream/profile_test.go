package upstream

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileAppliesBrowserHeaders(t *testing.T) {
	p := NewProfile(false)
	p.pickUA = func() string { return browserUserAgents[0] }

	h := make(http.Header)
	p.Apply(h)
	assert.Equal(t, browserUserAgents[0], h.Get("User-Agent"))
	assert.Equal(t, "en-US,en;q=0.9", h.Get("Accept-Language"))
	assert.Empty(t, h.Get("X-Request-Id"))
}

func TestProfileKeepsCallerValues(t *testing.T) {
	p := NewProfile(false)

	h := make(http.Header)
	h.Set("User-Agent", "custom-agent/1.0")
	p.Apply(h)
	assert.Equal(t, "custom-agent/1.0", h.Get("User-Agent"))
}

func TestProfileRandomRequestID(t *testing.T) {
	p := NewProfile(true)
	p.coin = func() bool { return true }

	h := make(http.Header)
	p.Apply(h)
	assert.NotEmpty(t, h.Get("X-Request-Id"))

	p.coin = func() bool { return false }
	h = make(http.Header)
	p.Apply(h)
	assert.Empty(t, h.Get("X-Request-Id"))
}
