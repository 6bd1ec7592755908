package proxy

import (
	"net/http"
	"strings"

	"api-firewall/internal/health"
	"api-firewall/internal/providers"
	"api-firewall/internal/version"
)

// Dispatcher selects the upstream target for a request path.
type Dispatcher func(path string) providers.Target

// NewDispatcher builds the routing policy:
//   - /anthropic/* goes to Anthropic
//   - completion-style endpoints go to Cerebras when it has a key and its
//     circuit is accepting traffic, for fast inference on the models it
//     serves; with the circuit open they fall back to OpenAI
//   - everything else goes to OpenAI
func NewDispatcher(openai, anthropic, cerebras providers.Target, cerebrasEnabled bool, tracker *health.Tracker) Dispatcher {
	return func(path string) providers.Target {
		if strings.HasPrefix(path, "/anthropic/") {
			return anthropic
		}
		if cerebrasEnabled && strings.Contains(path, "completions") && tracker.IsHealthy(cerebras.Name()) {
			return cerebras
		}
		return openai
	}
}

// Routes assembles the HTTP handler tree. Inference traffic runs through
// the full middleware chain; health and root endpoints stay bare.
func Routes(handler http.Handler, limiter *ConcurrencyLimiter, tracker *health.Tracker) http.Handler {
	mux := http.NewServeMux()

	chained := handler
	chained = limiter.Middleware()(chained)
	chained = LoggingMiddleware()(chained)
	chained = RequestIDMiddleware()(chained)

	mux.Handle("/v1/", chained)
	mux.Handle("/anthropic/", chained)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"version":   version.Version,
			"upstreams": tracker.States(),
		})
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "api-firewall",
			"version": version.String(),
		})
	})

	return mux
}
