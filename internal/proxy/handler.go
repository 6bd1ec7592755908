package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"api-firewall/internal/cache"
	"api-firewall/internal/health"
	"api-firewall/internal/providers"
	"api-firewall/internal/ratelimit"
	"api-firewall/internal/redact"
	"api-firewall/internal/relay"
	"api-firewall/internal/retry"
	"api-firewall/internal/security"
	"api-firewall/internal/upstream"
)

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 10 << 20

// Handler is the forwarding pipeline: classify, filter, admit, dispatch,
// send, relay.
type Handler struct {
	dispatch  Dispatcher
	filter    *security.Filter
	tokens    ratelimit.TokenAdmitter
	estimator ratelimit.Estimator
	client    *upstream.Client
	retry     *retry.Controller
	relay     *relay.Relay
	health    *health.Tracker
	cache     cache.Cache
	cacheTTL  time.Duration
	audit     *redact.Logger
	mock      bool
}

// HandlerOptions collects Handler dependencies.
type HandlerOptions struct {
	Dispatch  Dispatcher
	Filter    *security.Filter
	Tokens    ratelimit.TokenAdmitter
	Estimator ratelimit.Estimator
	Client    *upstream.Client
	Retry     *retry.Controller
	Relay     *relay.Relay
	Health    *health.Tracker
	Cache     cache.Cache
	CacheTTL  time.Duration
	Audit     *redact.Logger
	Mock      bool
}

// NewHandler creates the forwarding handler.
func NewHandler(opts HandlerOptions) *Handler {
	h := &Handler{
		dispatch:  opts.Dispatch,
		filter:    opts.Filter,
		tokens:    opts.Tokens,
		estimator: opts.Estimator,
		client:    opts.Client,
		retry:     opts.Retry,
		relay:     opts.Relay,
		health:    opts.Health,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		audit:     opts.Audit,
		mock:      opts.Mock,
	}
	if h.cache == nil {
		h.cache = cache.Noop()
	}
	if h.estimator == nil {
		h.estimator = ratelimit.HeuristicEstimator{}
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := GetRequestID(ctx)
	path := r.URL.Path

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, KindInvalidRequest,
				"Request body exceeds the maximum allowed size")
			return
		}
		WriteError(w, http.StatusBadRequest, KindInvalidRequest, "Failed to read request body")
		return
	}

	if len(body) > 0 && !gjson.ValidBytes(body) {
		WriteError(w, http.StatusBadRequest, KindInvalidRequest, "Request body is not valid JSON")
		return
	}

	if h.audit != nil {
		h.audit.LogRequest(requestID, r.Method, path, r.Header, body)
	}

	if result := h.filter.Validate(body, path); !result.OK {
		h.writeFilterViolation(w, requestID, result)
		return
	}

	endpoint := security.ClassifyPath(path)
	if endpoint.ConsumesTokens() && len(body) > 0 {
		estimate := h.estimator.Estimate(body)
		if err := h.tokens.Admit(ctx, estimate); err != nil {
			// The caller went away while waiting for capacity.
			zerolog.Ctx(ctx).Debug().
				Str("request_id", requestID).
				Int("tokens", estimate).
				Msg("caller left while awaiting token capacity")
			return
		}
	}

	target := h.dispatch(path)
	stream := gjson.GetBytes(body, "stream").Bool()

	outBody, outPath, err := target.TransformBody(body, path)
	if err != nil {
		WriteError(w, http.StatusBadRequest, KindInvalidRequest, "Failed to transform request body")
		return
	}

	headers, err := h.client.BuildHeaders(target, r.Header, stream)
	if err != nil {
		if errors.Is(err, providers.ErrNoCredential) {
			WriteError(w, http.StatusUnauthorized, KindAPIKey,
				"No API key available for "+target.Name())
			return
		}
		WriteError(w, http.StatusInternalServerError, KindProxy, "Failed to build upstream request")
		return
	}

	if h.mock {
		h.serveMock(w, r, endpoint, stream)
		return
	}

	done, err := h.health.Circuit(target.Name()).Allow()
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, KindProxy,
			"Upstream "+target.Name()+" is temporarily unavailable")
		return
	}

	url := target.BuildURL(outPath)
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	h.client.AbsorbCookies(url, r)

	if stream {
		h.forwardStreaming(ctx, w, r, target, url, headers, outBody, requestID, done)
		return
	}
	h.forwardBuffered(ctx, w, r, url, headers, outBody, requestID, path, done)
}

func (h *Handler) writeFilterViolation(w http.ResponseWriter, requestID string, result security.Result) {
	kind := KindSecurityFilter
	message := "Security violation: " + result.Detail
	if result.Kind == security.KindRateLimitExceeded {
		kind = KindRateLimit
		message = result.Detail
	}
	if h.audit != nil {
		h.audit.LogError(requestID, result.Kind, result.Detail)
	}
	WriteError(w, result.Status, kind, message)
}

func (h *Handler) forwardStreaming(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	target providers.Target,
	url string,
	headers http.Header,
	body []byte,
	requestID string,
	done func(error),
) {
	resp, err := h.client.Stream(ctx, r.Method, url, headers, body)
	if err != nil {
		done(err)
		h.writeUpstreamError(w, requestID, err)
		return
	}
	done(failureFor(resp.StatusCode))

	if err := h.relay.Stream(ctx, w, resp, requestID); err != nil {
		zerolog.Ctx(ctx).Debug().
			Str("request_id", requestID).
			Str("target", target.Name()).
			Err(err).
			Msg("relay write failed, caller likely disconnected")
	}
}

func (h *Handler) forwardBuffered(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	url string,
	headers http.Header,
	body []byte,
	requestID, path string,
	done func(error),
) {
	cacheable := r.Method == http.MethodGet
	cacheKey := ""
	if cacheable {
		cacheKey = cache.Key(r.Method, path, headers.Get("Authorization")+headers.Get("x-api-key"))
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
			done(nil)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Length", strconv.Itoa(len(cached)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	resp, err := h.retry.Do(ctx, requestID, path, func(ctx context.Context) (*http.Response, error) {
		return h.client.Do(ctx, r.Method, url, headers, body)
	})
	if err != nil {
		done(err)
		h.writeUpstreamError(w, requestID, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	done(failureFor(resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		h.writeUpstreamError(w, requestID, err)
		return
	}

	if h.audit != nil {
		h.audit.LogResponse(requestID, resp.StatusCode, resp.Header, respBody)
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		_ = h.cache.SetWithTTL(ctx, cacheKey, respBody, h.cacheTTL)
	}

	copyResponseHeaders(w.Header(), resp.Header)
	w.Header().Set("Content-Length", strconv.Itoa(len(respBody)))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// failureFor maps a status code to the error the circuit breaker records.
func failureFor(statusCode int) error {
	if health.ShouldCountAsFailure(statusCode, nil) {
		return errors.New("upstream returned " + strconv.Itoa(statusCode))
	}
	return nil
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, requestID string, err error) {
	if h.audit != nil {
		h.audit.LogError(requestID, KindProxy, err.Error())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		WriteError(w, http.StatusGatewayTimeout, KindProxy, "Upstream request timed out")
		return
	}
	if errors.Is(err, context.Canceled) {
		// Caller is gone, nothing to write.
		return
	}
	WriteError(w, http.StatusInternalServerError, KindProxy,
		"Upstream request failed: "+redact.Secret(err.Error()))
}

// copyResponseHeaders forwards upstream headers, dropping fields the
// gateway recomputes or that no longer describe the body it sends. The
// transport already decompressed the body, so stale encoding and length
// headers must not survive.
func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Content-Encoding", "Transfer-Encoding", "Connection":
			continue
		}
		dst[http.CanonicalHeaderKey(name)] = values
	}
}
