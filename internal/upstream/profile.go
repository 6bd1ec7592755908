package upstream

import (
	"math/rand/v2"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// browserUserAgents are rotated per request when the profile is enabled.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.4 Safari/605.1.15)",
}

// Profile decorates outbound headers to look like ordinary browser
// traffic. Off by default; useful against upstreams that deprioritize
// obvious machine clients.
type Profile struct {
	randomRequestID bool
	pickUA          func() string
	coin            func() bool
}

// NewProfile creates a browser header profile. When randomRequestID is
// set, roughly half of requests carry a random X-Request-ID.
func NewProfile(randomRequestID bool) *Profile {
	return &Profile{
		randomRequestID: randomRequestID,
		pickUA:          func() string { return lo.Sample(browserUserAgents) },
		coin:            func() bool { return rand.IntN(2) == 0 },
	}
}

// Apply sets the profile headers, leaving any caller-set values alone.
func (p *Profile) Apply(h http.Header) {
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", p.pickUA())
	}
	if h.Get("Accept-Language") == "" {
		h.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if p.randomRequestID && h.Get("X-Request-Id") == "" && p.coin() {
		h.Set("X-Request-Id", uuid.NewString())
	}
}
