package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-firewall/internal/config"
)

func TestOpenAIAuthenticateConfiguredKey(t *testing.T) {
	target := NewOpenAITarget(config.ProviderConfig{APIKey: "sk-test123456789"})

	out := make(http.Header)
	require.NoError(t, target.Authenticate(out, make(http.Header)))
	assert.Equal(t, "Bearer sk-test123456789", out.Get("Authorization"))
}

func TestOpenAIAuthenticateCallerTokenWins(t *testing.T) {
	target := NewOpenAITarget(config.ProviderConfig{APIKey: "sk-configured"})

	inbound := make(http.Header)
	inbound.Set("Authorization", "Bearer sk-caller")
	out := make(http.Header)
	require.NoError(t, target.Authenticate(out, inbound))
	assert.Equal(t, "Bearer sk-caller", out.Get("Authorization"))
}

func TestOpenAIAuthenticateNoCredential(t *testing.T) {
	target := NewOpenAITarget(config.ProviderConfig{})

	err := target.Authenticate(make(http.Header), make(http.Header))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestOpenAIOrganizationPrecedence(t *testing.T) {
	target := NewOpenAITarget(config.ProviderConfig{OrgID: "org-configured"})

	out := make(http.Header)
	target.IdentityHeaders(out, make(http.Header))
	assert.Equal(t, "org-configured", out.Get("OpenAI-Organization"))

	inbound := make(http.Header)
	inbound.Set("OpenAI-Organization", "org-caller")
	out = make(http.Header)
	target.IdentityHeaders(out, inbound)
	assert.Equal(t, "org-caller", out.Get("OpenAI-Organization"))
}

func TestOpenAIOrganizationOmittedWhenUnset(t *testing.T) {
	target := NewOpenAITarget(config.ProviderConfig{})

	out := make(http.Header)
	target.IdentityHeaders(out, make(http.Header))
	_, present := out["Openai-Organization"]
	assert.False(t, present)
}

func TestCerebrasDefaults(t *testing.T) {
	target := NewCerebrasTarget(config.ProviderConfig{APIKey: "csk-abc"})

	assert.Equal(t, "cerebras", target.Name())
	assert.Equal(t, DefaultCerebrasBaseURL, target.BaseURL())
	assert.Equal(t, "https://api.cerebras.ai/v1/chat/completions", target.BuildURL("/v1/chat/completions"))
}
