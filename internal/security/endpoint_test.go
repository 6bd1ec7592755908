package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		want Endpoint
	}{
		{"/v1/chat/completions", EndpointChatCompletion},
		{"/chat/completions", EndpointChatCompletion},
		{"/v1/completions", EndpointCompletion},
		{"/v1/embeddings", EndpointEmbedding},
		{"/v1/messages", EndpointMessage},
		{"/anthropic/v1/messages", EndpointMessage},
		{"/v1/models", EndpointOther},
		{"/health", EndpointOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPath(tt.path))
		})
	}
}

func TestConsumesTokens(t *testing.T) {
	assert.True(t, EndpointChatCompletion.ConsumesTokens())
	assert.True(t, EndpointCompletion.ConsumesTokens())
	assert.True(t, EndpointMessage.ConsumesTokens())
	assert.False(t, EndpointEmbedding.ConsumesTokens())
	assert.False(t, EndpointOther.ConsumesTokens())
}
