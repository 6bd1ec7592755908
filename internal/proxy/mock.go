package proxy

import (
	"net/http"
	"strconv"
	"time"

	"api-firewall/internal/relay"
	"api-firewall/internal/security"
)

// Canned bodies served in mock mode, shaped like real provider responses
// so clients exercise their full parse path without upstream credentials.
const (
	mockChatCompletion = `{"id":"chatcmpl-mock","object":"chat.completion","created":1700000000,"model":"mock","choices":[{"index":0,"message":{"role":"assistant","content":"This is a mock response."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":7,"total_tokens":17}}`

	mockMessage = `{"id":"msg_mock","type":"message","role":"assistant","model":"mock","content":[{"type":"text","text":"This is a mock response."}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":7}}`

	mockEmbedding = `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"mock","usage":{"prompt_tokens":5,"total_tokens":5}}`
)

var mockStreamChunks = []string{
	`{"id":"chatcmpl-mock","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
	`{"id":"chatcmpl-mock","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"This is a mock "},"finish_reason":null}]}`,
	`{"id":"chatcmpl-mock","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"response."},"finish_reason":null}]}`,
	`{"id":"chatcmpl-mock","object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
}

// serveMock answers without contacting any upstream.
func (h *Handler) serveMock(w http.ResponseWriter, r *http.Request, endpoint security.Endpoint, stream bool) {
	if stream {
		h.serveMockStream(w, r)
		return
	}

	var body string
	switch endpoint {
	case security.EndpointMessage:
		body = mockMessage
	case security.EndpointEmbedding:
		body = mockEmbedding
	default:
		body = mockChatCompletion
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *Handler) serveMockStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, chunk := range mockStreamChunks {
		if err := relay.WriteEvent(w, relay.Event{Data: []byte(chunk)}); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	_ = relay.WriteEvent(w, relay.Event{Data: []byte("[DONE]")})
}
