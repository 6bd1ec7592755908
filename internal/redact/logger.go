package redact

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Logger records proxied requests and responses with secrets stripped.
//
// At info level only method, path and status are emitted. Headers and bodies
// are emitted at debug level only, after a redaction pass over every string
// value.
type Logger struct {
	base zerolog.Logger
}

// NewLogger wraps a zerolog logger with redaction-aware request logging.
func NewLogger(base zerolog.Logger) *Logger {
	return &Logger{base: base}
}

// LogRequest records an inbound request under its request id.
func (l *Logger) LogRequest(requestID, method, path string, headers http.Header, body []byte) {
	l.base.Info().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Msg("api request")

	if l.base.GetLevel() > zerolog.DebugLevel {
		return
	}

	event := l.base.Debug().
		Str("request_id", requestID).
		Interface("headers", Headers(headers))
	if len(body) > 0 {
		event = event.Str("body", Secret(string(body)))
	}
	event.Msg("api request detail")
}

// LogResponse records an upstream response under its request id.
func (l *Logger) LogResponse(requestID string, status int, headers http.Header, body []byte) {
	l.base.Info().
		Str("request_id", requestID).
		Int("status", status).
		Msg("api response")

	if l.base.GetLevel() > zerolog.DebugLevel {
		return
	}

	event := l.base.Debug().
		Str("request_id", requestID).
		Int("status", status).
		Interface("headers", Headers(headers))
	if len(body) > 0 {
		event = event.Str("body", Secret(string(body)))
	}
	event.Msg("api response detail")
}

// LogError records a failure under its request id. The message passes
// through redaction so transport errors cannot leak credentials embedded in
// URLs or headers.
func (l *Logger) LogError(requestID, kind, message string) {
	l.base.Error().
		Str("request_id", requestID).
		Str("error_type", kind).
		Msg(Secret(message))
}
