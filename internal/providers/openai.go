package providers

import (
	"net/http"
	"strings"

	"api-firewall/internal/config"
)

// DefaultOpenAIBaseURL is the default OpenAI API base URL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAITarget forwards to OpenAI or any Bearer-authenticated
// OpenAI-compatible backend.
type OpenAITarget struct {
	BaseTarget
	orgID string
}

// NewOpenAITarget creates an OpenAI target from configuration. An empty
// base URL falls back to the public API.
func NewOpenAITarget(cfg config.ProviderConfig) *OpenAITarget {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAITarget{
		BaseTarget: NewBaseTarget("openai", baseURL, cfg.APIKey),
		orgID:      cfg.OrgID,
	}
}

// Authenticate sets the Authorization header. A caller-supplied bearer
// token wins over the configured key; with neither, ErrNoCredential.
func (t *OpenAITarget) Authenticate(out http.Header, inbound http.Header) error {
	if auth := inbound.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		out.Set("Authorization", auth)
		return nil
	}
	if t.apiKey != "" {
		out.Set("Authorization", "Bearer "+t.apiKey)
		return nil
	}
	return ErrNoCredential
}

// IdentityHeaders sets OpenAI-Organization when the caller or the
// configuration supplies one.
func (t *OpenAITarget) IdentityHeaders(out http.Header, inbound http.Header) {
	if org := inbound.Get("OpenAI-Organization"); org != "" {
		out.Set("OpenAI-Organization", org)
		return
	}
	if t.orgID != "" {
		out.Set("OpenAI-Organization", t.orgID)
	}
}
