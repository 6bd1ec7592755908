// Package proxy implements the HTTP gateway: inbound routes, policy
// enforcement, and forwarding to upstream targets.
package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Error kinds carried in the envelope's type field.
const (
	KindInvalidRequest = "invalid_request_error"
	KindAPIKey         = "api_key_error"
	KindSecurityFilter = "security_filter_error"
	KindRateLimit      = "rate_limit_error"
	KindStream         = "stream_error"
	KindProxy          = "proxy_error"
)

// ErrorEnvelope is the JSON error shape every non-2xx gateway response
// uses, matching the OpenAI error format clients already parse.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the client-facing message and error kind.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// WriteError writes a JSON error envelope with the given status.
func WriteError(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, ErrorEnvelope{
		Error: ErrorDetail{
			Message: message,
			Type:    kind,
		},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
