// Package retry re-issues upstream requests that come back 429, honoring
// the provider's reset header when present and exponential backoff with
// jitter when not.
package retry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"
)

const (
	// maxAttempts bounds the total number of upstream sends, the first
	// one included.
	maxAttempts = 3

	// baseDelay seeds the exponential backoff schedule.
	baseDelay = time.Second

	// resetSlack pads a provider-announced reset so the retry lands
	// after the window actually rolls over.
	resetSlack = 500 * time.Millisecond
)

// Attempt issues one upstream request and returns its response.
type Attempt func(ctx context.Context) (*http.Response, error)

// Controller retries rate-limited upstream calls. Zero value is not
// usable; construct with NewController.
type Controller struct {
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// NewController creates a retry controller with the default backoff
// schedule.
func NewController() *Controller {
	return &Controller{
		sleep:     sleepCtx,
		randFloat: rand.Float64,
	}
}

// Do runs attempt up to maxAttempts times. Any response other than 429 is
// returned as-is, first try included; transport errors are never retried
// here. When every attempt is rate limited, the final 429 is replaced by a
// synthesized envelope naming the request so the caller sees a stable
// shape regardless of which provider exhausted it.
func (c *Controller) Do(ctx context.Context, requestID, path string, attempt Attempt) (*http.Response, error) {
	logger := zerolog.Ctx(ctx)

	for i := range maxAttempts {
		resp, err := attempt(ctx)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		if i == maxAttempts-1 {
			drain(resp)
			return exhausted(requestID, path), nil
		}

		delay := c.delayFor(resp, i)
		drain(resp)
		logger.Warn().
			Str("request_id", requestID).
			Str("path", path).
			Int("attempt", i+1).
			Dur("delay", delay).
			Msg("upstream rate limited, backing off")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	// Unreachable: the loop always returns on its last iteration.
	return nil, ctx.Err()
}

// delayFor derives the wait before the next attempt. A positive value in
// any x-ratelimit-reset-style header wins; otherwise exponential backoff
// with jitter in [0.5, 1.5) of the nominal delay.
func (c *Controller) delayFor(resp *http.Response, attempt int) time.Duration {
	if reset, ok := resetSeconds(resp.Header); ok {
		return time.Duration(reset*float64(time.Second)) + resetSlack
	}
	nominal := float64(baseDelay) * math.Pow(2, float64(attempt))
	return time.Duration(nominal * (0.5 + c.randFloat()))
}

// resetSeconds scans for a header whose name contains x-ratelimit-reset,
// case-insensitively, so x-ratelimit-reset-requests and
// x-ratelimit-reset-tokens variants all match.
func resetSeconds(h http.Header) (float64, bool) {
	for name, values := range h {
		if !strings.Contains(strings.ToLower(name), "x-ratelimit-reset") {
			continue
		}
		for _, v := range values {
			seconds, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "s"), 64)
			if err == nil && seconds > 0 {
				return seconds, true
			}
		}
	}
	return 0, false
}

// exhausted builds the response returned after the final attempt was
// still rate limited.
func exhausted(requestID, path string) *http.Response {
	body := []byte(`{}`)
	message := fmt.Sprintf("Rate limit persisted after %d attempts for request %s to %s", maxAttempts, requestID, path)
	body, _ = sjson.SetBytes(body, "error.message", message)
	body, _ = sjson.SetBytes(body, "error.type", "rate_limit_error")

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))

	return &http.Response{
		Status:        http.StatusText(http.StatusTooManyRequests),
		StatusCode:    http.StatusTooManyRequests,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
