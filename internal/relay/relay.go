package relay

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/ro"
	roratelimit "github.com/samber/ro/plugins/ratelimit/native"
	"github.com/tidwall/sjson"

	"api-firewall/internal/redact"
)

// Relay forwards an upstream streaming response to the caller. Every
// relayed stream terminates with exactly one [DONE] frame: upstream
// failures become an in-band error frame followed by [DONE], and streams
// the upstream closed without a terminator get one appended.
type Relay struct {
	maxEventsPerSec int64
}

// Option configures a Relay.
type Option func(*Relay)

// WithThrottle caps forwarded events per second. Zero means unthrottled.
func WithThrottle(eventsPerSec int64) Option {
	return func(r *Relay) { r.maxEventsPerSec = eventsPerSec }
}

// New creates a relay.
func New(opts ...Option) *Relay {
	r := &Relay{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stream relays resp to w as SSE and closes resp.Body. A 429 first status
// short-circuits: the response is passed through as buffered JSON so retry
// metadata headers survive, and no SSE framing is applied.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, resp *http.Response, requestID string) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return passthrough(w, resp)
	}

	logger := zerolog.Ctx(ctx)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Del("Content-Length")
	w.WriteHeader(resp.StatusCode)

	// Closing the body is the only way to interrupt a blocked read when
	// the caller disconnects.
	watch := make(chan struct{})
	defer close(watch)
	go func() {
		select {
		case <-ctx.Done():
			_ = resp.Body.Close()
		case <-watch:
		}
	}()

	events := StreamSSE(resp.Body)
	if r.maxEventsPerSec > 0 {
		events = ro.Pipe1(events, roratelimit.NewRateLimiter[Event](
			r.maxEventsPerSec, time.Second, func(Event) string { return "" }))
	}

	doneSeen := false
	var writeErr error

	events.Subscribe(ro.NewObserver(
		func(event Event) {
			if writeErr != nil {
				return
			}
			if event.IsDone() {
				if doneSeen {
					return
				}
				doneSeen = true
			}
			writeErr = WriteEvent(w, event)
		},
		func(err error) {
			logger.Warn().
				Str("request_id", requestID).
				Err(err).
				Msg("upstream stream failed, terminating relay")
			if writeErr != nil {
				return
			}
			if !doneSeen {
				_ = WriteEvent(w, errorFrame(err))
				writeErr = WriteEvent(w, doneEvent())
				doneSeen = true
			}
		},
		func() {
			if writeErr == nil && !doneSeen {
				writeErr = WriteEvent(w, doneEvent())
				doneSeen = true
			}
		},
	))

	return writeErr
}

func passthrough(w http.ResponseWriter, resp *http.Response) error {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	for name, values := range resp.Header {
		if strings.HasPrefix(http.CanonicalHeaderKey(name), "X-Ratelimit-") {
			w.Header()[http.CanonicalHeaderKey(name)] = values
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, err := io.Copy(w, resp.Body)
	return err
}

// errorFrame builds the in-band error event. The message goes through
// redaction so an upstream error echoing a credential never reaches the
// caller verbatim.
func errorFrame(err error) Event {
	data := []byte(`{}`)
	data, _ = sjson.SetBytes(data, "error.message", redact.Secret(err.Error()))
	data, _ = sjson.SetBytes(data, "error.type", "stream_error")
	return Event{Data: data}
}

func doneEvent() Event {
	return Event{Data: []byte("[DONE]")}
}
