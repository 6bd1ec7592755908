package providers

import (
	"net/http"
	"strings"

	"api-firewall/internal/config"
)

const (
	// DefaultAnthropicBaseURL is the default Anthropic API base URL.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// DefaultAnthropicVersion is sent when neither the caller nor the
	// configuration pins an API version.
	DefaultAnthropicVersion = "2023-06-01"
)

// AnthropicTarget forwards to Anthropic's Messages API. Requests arriving
// in OpenAI chat format are converted on the way through.
type AnthropicTarget struct {
	BaseTarget
	version string
}

// NewAnthropicTarget creates an Anthropic target from configuration.
func NewAnthropicTarget(cfg config.ProviderConfig) *AnthropicTarget {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	return &AnthropicTarget{
		BaseTarget: NewBaseTarget("anthropic", baseURL, cfg.APIKey),
		version:    cfg.Version,
	}
}

// Authenticate sets x-api-key. The caller's x-api-key header wins over the
// configured key; a caller Bearer token is also accepted and unwrapped.
func (t *AnthropicTarget) Authenticate(out http.Header, inbound http.Header) error {
	if key := inbound.Get("X-Api-Key"); key != "" {
		out.Set("x-api-key", key)
		return nil
	}
	if auth := inbound.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		out.Set("x-api-key", strings.TrimPrefix(auth, "Bearer "))
		return nil
	}
	if t.apiKey != "" {
		out.Set("x-api-key", t.apiKey)
		return nil
	}
	return ErrNoCredential
}

// IdentityHeaders sets anthropic-version: caller value, then configured
// value, then the package default. Anthropic rejects requests without one.
func (t *AnthropicTarget) IdentityHeaders(out http.Header, inbound http.Header) {
	if v := inbound.Get("Anthropic-Version"); v != "" {
		out.Set("anthropic-version", v)
		return
	}
	if t.version != "" {
		out.Set("anthropic-version", t.version)
		return
	}
	out.Set("anthropic-version", DefaultAnthropicVersion)
}

// TransformBody converts OpenAI chat completion requests to Anthropic
// Messages format and rewrites the path. Bodies already in Messages format
// pass through untouched.
func (t *AnthropicTarget) TransformBody(body []byte, path string) ([]byte, string, error) {
	if !strings.Contains(path, "chat/completions") {
		return body, path, nil
	}
	converted, err := ConvertOpenAIToAnthropic(body)
	if err != nil {
		return nil, "", err
	}
	return converted, "/v1/messages", nil
}
