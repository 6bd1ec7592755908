package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURLUnversionedBase(t *testing.T) {
	target := NewBaseTarget("test", "https://api.anthropic.com", "")
	assert.Equal(t, "https://api.anthropic.com/v1/messages", target.BuildURL("/v1/messages"))
}

func TestBuildURLVersionedBaseDeduplicates(t *testing.T) {
	target := NewBaseTarget("test", "https://api.openai.com/v1", "")
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", target.BuildURL("/v1/chat/completions"))
}

func TestBuildURLVersionedBaseUnversionedPath(t *testing.T) {
	target := NewBaseTarget("test", "https://api.openai.com/v1", "")
	assert.Equal(t, "https://api.openai.com/v1/models", target.BuildURL("/models"))
}

func TestBuildURLTrailingSlashBase(t *testing.T) {
	target := NewBaseTarget("test", "https://api.openai.com/v1/", "")
	assert.Equal(t, "https://api.openai.com/v1/embeddings", target.BuildURL("/v1/embeddings"))
}

func TestBuildURLKeepsNonVersionSegments(t *testing.T) {
	// "vector" starts with v but is not a version segment.
	target := NewBaseTarget("test", "https://api.example.com/v2", "")
	assert.Equal(t, "https://api.example.com/v2/vector/search", target.BuildURL("/vector/search"))
}
