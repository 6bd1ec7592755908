// Package providers defines the upstream LLM backends requests are
// forwarded to and how credentials and identity headers are attached.
package providers

import (
	"errors"
	"net/http"
)

// ErrNoCredential is returned by Authenticate when neither the caller nor
// the configuration supplies an API key for the target.
var ErrNoCredential = errors.New("providers: no api key for target")

// Target is an upstream backend. Implementations build the outbound URL,
// attach authentication and identity headers, and may rewrite the body for
// backends that speak a different dialect than the caller.
type Target interface {
	// Name returns the target identifier used in logs and dispatch.
	Name() string

	// BaseURL returns the backend base URL.
	BaseURL() string

	// BuildURL joins the base URL with the inbound path, deduplicating
	// the version segment when the base URL already carries one.
	BuildURL(path string) string

	// Authenticate sets the backend's credential header on out. The
	// caller's inbound headers take precedence over configured keys so
	// clients can bring their own credentials.
	Authenticate(out http.Header, inbound http.Header) error

	// IdentityHeaders sets optional org/version headers. Caller-supplied
	// values win over configured ones; absent both, nothing is set.
	IdentityHeaders(out http.Header, inbound http.Header)

	// TransformBody adapts the request body and path to the backend's
	// dialect. Targets speaking the caller's dialect return both
	// unchanged.
	TransformBody(body []byte, path string) ([]byte, string, error)
}
