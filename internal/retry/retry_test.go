package retry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testController() (*Controller, *[]time.Duration) {
	var sleeps []time.Duration
	c := &Controller{
		sleep: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
		randFloat: func() float64 { return 0.5 },
	}
	return c, &sleeps
}

func response(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestDoReturnsSuccessImmediately(t *testing.T) {
	c, sleeps := testController()

	calls := 0
	resp, err := c.Do(context.Background(), "req-1", "/v1/chat/completions", func(context.Context) (*http.Response, error) {
		calls++
		return response(http.StatusOK, nil, `{}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *sleeps)
}

func TestDoNeverRetriesNon429Errors(t *testing.T) {
	c, _ := testController()

	calls := 0
	resp, err := c.Do(context.Background(), "req-1", "/v1/messages", func(context.Context) (*http.Response, error) {
		calls++
		return response(http.StatusBadGateway, nil, `{}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTwiceThenSucceeds(t *testing.T) {
	c, sleeps := testController()

	calls := 0
	resp, err := c.Do(context.Background(), "req-1", "/v1/chat/completions", func(context.Context) (*http.Response, error) {
		calls++
		if calls < 3 {
			return response(http.StatusTooManyRequests, nil, `{}`), nil
		}
		return response(http.StatusOK, nil, `{}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
	require.Len(t, *sleeps, 2)
	// randFloat pinned to 0.5: delay = base * 2^attempt * (0.5 + 0.5).
	assert.Equal(t, time.Second, (*sleeps)[0])
	assert.Equal(t, 2*time.Second, (*sleeps)[1])
}

func TestDoHonorsResetHeader(t *testing.T) {
	c, sleeps := testController()

	header := make(http.Header)
	header.Set("X-RateLimit-Reset-Requests", "2")

	calls := 0
	_, err := c.Do(context.Background(), "req-1", "/v1/messages", func(context.Context) (*http.Response, error) {
		calls++
		if calls == 1 {
			return response(http.StatusTooManyRequests, header, `{}`), nil
		}
		return response(http.StatusOK, nil, `{}`), nil
	})
	require.NoError(t, err)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 2*time.Second+resetSlack, (*sleeps)[0])
}

func TestDoIgnoresUnparsableResetHeader(t *testing.T) {
	c, sleeps := testController()

	header := make(http.Header)
	header.Set("X-RateLimit-Reset", "soon")

	calls := 0
	_, err := c.Do(context.Background(), "req-1", "/v1/messages", func(context.Context) (*http.Response, error) {
		calls++
		if calls == 1 {
			return response(http.StatusTooManyRequests, header, `{}`), nil
		}
		return response(http.StatusOK, nil, `{}`), nil
	})
	require.NoError(t, err)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, time.Second, (*sleeps)[0])
}

func TestDoExhaustionSynthesizesEnvelope(t *testing.T) {
	c, sleeps := testController()

	calls := 0
	resp, err := c.Do(context.Background(), "req-42", "/v1/chat/completions", func(context.Context) (*http.Response, error) {
		calls++
		return response(http.StatusTooManyRequests, nil, `{}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, *sleeps, 2)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Equal(t, "rate_limit_error", gjson.GetBytes(body, "error.type").String())
	message := gjson.GetBytes(body, "error.message").String()
	assert.Contains(t, message, "req-42")
	assert.Contains(t, message, "/v1/chat/completions")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestDoPropagatesTransportError(t *testing.T) {
	c, _ := testController()

	calls := 0
	_, err := c.Do(context.Background(), "req-1", "/v1/messages", func(context.Context) (*http.Response, error) {
		calls++
		return nil, io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, calls)
}
