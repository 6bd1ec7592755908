package proxy

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RequestIDMiddleware adds the X-Request-ID header and a request-scoped
// logger to the context. Caller-supplied IDs are kept.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get("X-Request-ID")
			ctx := AddRequestID(request.Context(), requestID)

			if requestID == "" {
				requestID = GetRequestID(ctx)
			}
			writer.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs each request's method, path, status and duration.
// Failures escalate the level: 4xx warns, 5xx errors.
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: writer, statusCode: http.StatusOK}

			logger := zerolog.Ctx(request.Context())
			logger.Info().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Msg("request received")

			next.ServeHTTP(wrapped, request)

			logCtx := logger.With().
				Str("method", request.Method).
				Str("path", request.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start))
			if wrapped.isStreaming {
				logCtx = logCtx.Bool("streaming", true)
			}
			completion := logCtx.Logger()

			switch {
			case wrapped.statusCode >= 500:
				completion.Error().Msg("request completed")
			case wrapped.statusCode >= 400:
				completion.Warn().Msg("request completed")
			default:
				completion.Info().Msg("request completed")
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// detect streaming responses.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	isStreaming bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	if rw.Header().Get("Content-Type") == "text/event-stream" {
		rw.isStreaming = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards flushes so SSE delivery works through the wrapper.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// ConcurrencyLimiter enforces a global maximum number of in-flight
// requests. Over the limit, requests get 503 without touching upstream.
type ConcurrencyLimiter struct {
	limit   atomic.Int64
	current atomic.Int64
}

// NewConcurrencyLimiter creates a limiter. Zero or negative means
// unlimited.
func NewConcurrencyLimiter(maxLimit int64) *ConcurrencyLimiter {
	l := &ConcurrencyLimiter{}
	l.limit.Store(maxLimit)
	return l
}

// Acquire reserves a slot, returning false when the gateway is full.
func (l *ConcurrencyLimiter) Acquire() bool {
	limit := l.limit.Load()
	if limit <= 0 {
		return true
	}
	if l.current.Add(1) > limit {
		l.current.Add(-1)
		return false
	}
	return true
}

// Release frees a previously acquired slot.
func (l *ConcurrencyLimiter) Release() {
	if l.limit.Load() > 0 {
		l.current.Add(-1)
	}
}

// Middleware wraps a handler with the concurrency limit.
func (l *ConcurrencyLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !l.Acquire() {
				WriteError(writer, http.StatusServiceUnavailable, KindProxy,
					"Gateway is at maximum concurrency, please retry")
				return
			}
			defer l.Release()
			next.ServeHTTP(writer, request)
		})
	}
}
