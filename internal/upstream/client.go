package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"api-firewall/internal/config"
	"api-firewall/internal/providers"
)

const (
	// DefaultTimeout bounds buffered upstream calls when no timeout is
	// configured. Streaming calls are never bounded by a client timeout;
	// the request context governs them.
	DefaultTimeout = 300 * time.Second

	connectTimeout = 10 * time.Second
)

// Client issues outbound requests. Two pools are kept: buffered (bounded
// by a total timeout) and streaming (connect-bounded only). Each pool has
// an HTTP/1.1 twin used for a single fallback attempt when the HTTP/2
// transport fails below the HTTP layer.
type Client struct {
	buffered    *http.Client
	streaming   *http.Client
	bufferedH1  *http.Client
	streamingH1 *http.Client
	jar         *Jar
	profile     *Profile
}

// New creates the outbound client set from configuration.
func New(outbound config.OutboundConfig, timeout mo.Option[time.Duration]) (*Client, error) {
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}

	h2 := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ExpectContinueTimeout: time.Second,
	}

	h1 := h2.Clone()
	h1.ForceAttemptHTTP2 = false
	// A non-nil empty TLSNextProto disables HTTP/2 negotiation entirely.
	h1.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	total := timeout.OrElse(DefaultTimeout)

	c := &Client{
		buffered:    &http.Client{Transport: h2, Jar: jar, Timeout: total},
		streaming:   &http.Client{Transport: h2, Jar: jar},
		bufferedH1:  &http.Client{Transport: h1, Jar: jar, Timeout: total},
		streamingH1: &http.Client{Transport: h1, Jar: jar},
		jar:         jar,
	}
	if outbound.Profile == config.ProfileBrowser {
		c.profile = NewProfile(outbound.RandomRequestID)
	}
	return c, nil
}

// Jar exposes the shared cookie jar.
func (c *Client) Jar() *Jar {
	return c.jar
}

// AbsorbCookies merges cookies the caller attached to its request into the
// shared jar, keyed by the upstream URL, so they ride on the outbound call
// and on every later call to the same host from either pool.
func (c *Client) AbsorbCookies(rawURL string, inbound *http.Request) {
	cookies := inbound.Cookies()
	if len(cookies) == 0 {
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	c.jar.SetCookies(u, cookies)
}

// BuildHeaders assembles the outbound header set for a target: content
// type, credentials, identity headers and the optional browser profile.
// Streaming requests additionally force Accept to text/event-stream.
func (c *Client) BuildHeaders(target providers.Target, inbound http.Header, stream bool) (http.Header, error) {
	out := make(http.Header)
	out.Set("Content-Type", "application/json")
	if stream {
		out.Set("Accept", "text/event-stream")
	} else if accept := inbound.Get("Accept"); accept != "" {
		out.Set("Accept", accept)
	}

	if err := target.Authenticate(out, inbound); err != nil {
		return nil, err
	}
	target.IdentityHeaders(out, inbound)

	if c.profile != nil {
		c.profile.Apply(out)
	}
	return out, nil
}

// Do sends a buffered request and returns the upstream response. On a
// transport-level failure the request is replayed once over HTTP/1.1;
// context cancellation is returned as-is.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Response, error) {
	return c.send(ctx, c.buffered, c.bufferedH1, method, url, header, body)
}

// Stream sends a streaming request. The response body stays open for the
// relay; only the connect phase is time-bounded.
func (c *Client) Stream(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Response, error) {
	return c.send(ctx, c.streaming, c.streamingH1, method, url, header, body)
}

func (c *Client) send(ctx context.Context, primary, fallback *http.Client, method, url string, header http.Header, body []byte) (*http.Response, error) {
	req, err := newRequest(ctx, method, url, header, body)
	if err != nil {
		return nil, err
	}

	resp, err := primary.Do(req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil || !isTransportError(err) {
		return nil, err
	}

	zerolog.Ctx(ctx).Warn().
		Str("url", url).
		Err(err).
		Msg("transport failed, retrying over HTTP/1.1")

	req, reqErr := newRequest(ctx, method, url, header, body)
	if reqErr != nil {
		return nil, reqErr
	}
	return fallback.Do(req)
}

func newRequest(ctx context.Context, method, url string, header http.Header, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for name, values := range header {
		req.Header[name] = values
	}
	req.ContentLength = int64(len(body))
	return req, nil
}

// isTransportError reports whether the failure happened below the HTTP
// layer, where an HTTP/1.1 replay can plausibly succeed. Connect and
// handshake timeouts count; caller cancellation and an exhausted request
// deadline do not, since the replay would inherit them. Responses with
// error status codes are not errors at all and never reach here.
func isTransportError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
