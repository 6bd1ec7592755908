package providers

import "api-firewall/internal/config"

// DefaultCerebrasBaseURL is the default Cerebras inference API base URL.
// Cerebras speaks the OpenAI chat dialect, so the target reuses the OpenAI
// auth and header handling.
const DefaultCerebrasBaseURL = "https://api.cerebras.ai/v1"

// CerebrasTarget forwards completion traffic to Cerebras fast inference.
type CerebrasTarget struct {
	OpenAITarget
}

// NewCerebrasTarget creates a Cerebras target from configuration.
func NewCerebrasTarget(cfg config.ProviderConfig) *CerebrasTarget {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCerebrasBaseURL
	}
	t := &CerebrasTarget{OpenAITarget: *NewOpenAITarget(cfg)}
	t.name = "cerebras"
	return t
}
