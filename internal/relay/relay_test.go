package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func streamResponse(status int, body io.Reader) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(body),
	}
}

func TestStreamForwardsEventsAndDone(t *testing.T) {
	resp := streamResponse(http.StatusOK, strings.NewReader(
		"data: {\"chunk\":1}\n\ndata: {\"chunk\":2}\n\ndata: [DONE]\n\n"))

	rec := httptest.NewRecorder()
	require.NoError(t, New().Stream(context.Background(), rec, resp, "req-1"))

	out := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Contains(t, out, `data: {"chunk":1}`)
	assert.Contains(t, out, `data: {"chunk":2}`)
	assert.Equal(t, 1, strings.Count(out, "data: [DONE]"))
}

func TestStreamAppendsDoneWhenUpstreamOmitsIt(t *testing.T) {
	resp := streamResponse(http.StatusOK, strings.NewReader("data: {\"chunk\":1}\n\n"))

	rec := httptest.NewRecorder()
	require.NoError(t, New().Stream(context.Background(), rec, resp, "req-1"))

	assert.Equal(t, 1, strings.Count(rec.Body.String(), "data: [DONE]"))
}

func TestStreamDeduplicatesDone(t *testing.T) {
	resp := streamResponse(http.StatusOK, strings.NewReader(
		"data: [DONE]\n\ndata: [DONE]\n\n"))

	rec := httptest.NewRecorder()
	require.NoError(t, New().Stream(context.Background(), rec, resp, "req-1"))

	assert.Equal(t, 1, strings.Count(rec.Body.String(), "data: [DONE]"))
}

func TestStreamThrottledPipelineForwardsAll(t *testing.T) {
	resp := streamResponse(http.StatusOK, strings.NewReader(
		"data: {\"chunk\":1}\n\ndata: {\"chunk\":2}\n\ndata: {\"chunk\":3}\n\ndata: [DONE]\n\n"))

	rec := httptest.NewRecorder()
	require.NoError(t, New(WithThrottle(1000)).Stream(context.Background(), rec, resp, "req-1"))

	out := rec.Body.String()
	for _, chunk := range []string{`{"chunk":1}`, `{"chunk":2}`, `{"chunk":3}`} {
		assert.Contains(t, out, "data: "+chunk)
	}
	assert.Equal(t, 1, strings.Count(out, "data: [DONE]"))
}

func TestStreamErrorEmitsFrameThenDone(t *testing.T) {
	resp := streamResponse(http.StatusOK, &failingReader{data: "data: {\"chunk\":1}\n\n"})

	rec := httptest.NewRecorder()
	require.NoError(t, New().Stream(context.Background(), rec, resp, "req-1"))

	out := rec.Body.String()
	errIdx := strings.Index(out, "stream_error")
	doneIdx := strings.Index(out, "data: [DONE]")
	require.Positive(t, errIdx)
	require.Positive(t, doneIdx)
	assert.Less(t, errIdx, doneIdx)
	assert.Equal(t, 1, strings.Count(out, "data: [DONE]"))
}

func TestStreamErrorFrameIsRedacted(t *testing.T) {
	frame := errorFrame(io.ErrUnexpectedEOF)
	assert.Equal(t, "stream_error", gjson.GetBytes(frame.Data, "error.type").String())
	assert.NotEmpty(t, gjson.GetBytes(frame.Data, "error.message").String())
}

func TestStream429PassesThroughAsJSON(t *testing.T) {
	resp := streamResponse(http.StatusTooManyRequests, strings.NewReader(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Set("X-RateLimit-Reset-Requests", "7")

	rec := httptest.NewRecorder()
	require.NoError(t, New().Stream(context.Background(), rec, resp, "req-1"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "7", rec.Header().Get("X-RateLimit-Reset-Requests"))
	assert.NotContains(t, rec.Body.String(), "data:")
	assert.Equal(t, "rate_limit_error", gjson.Get(rec.Body.String(), "error.type").String())
}
