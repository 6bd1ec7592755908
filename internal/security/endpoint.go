// Package security validates inbound request bodies against the configured
// policy before anything is forwarded upstream.
package security

import "strings"

// Endpoint classifies the API surface a request targets. Classification
// drives which body fields are inspected and whether token admission
// applies.
type Endpoint int

const (
	EndpointOther Endpoint = iota
	EndpointChatCompletion
	EndpointCompletion
	EndpointEmbedding
	EndpointMessage
)

// ClassifyPath maps a request path to an Endpoint by substring, so both
// versioned (/v1/chat/completions) and provider-prefixed
// (/anthropic/v1/messages) paths classify the same way.
func ClassifyPath(path string) Endpoint {
	switch {
	case strings.Contains(path, "chat/completions"):
		return EndpointChatCompletion
	case strings.Contains(path, "completions"):
		return EndpointCompletion
	case strings.Contains(path, "embeddings"):
		return EndpointEmbedding
	case strings.Contains(path, "messages"):
		return EndpointMessage
	default:
		return EndpointOther
	}
}

// ConsumesTokens reports whether requests to this endpoint generate model
// output and therefore count against the token budget.
func (e Endpoint) ConsumesTokens() bool {
	switch e {
	case EndpointChatCompletion, EndpointCompletion, EndpointMessage:
		return true
	default:
		return false
	}
}

func (e Endpoint) String() string {
	switch e {
	case EndpointChatCompletion:
		return "chat_completion"
	case EndpointCompletion:
		return "completion"
	case EndpointEmbedding:
		return "embedding"
	case EndpointMessage:
		return "message"
	default:
		return "other"
	}
}
