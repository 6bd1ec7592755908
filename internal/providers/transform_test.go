package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestConvertJoinsMultipleSystemMessages(t *testing.T) {
	body := []byte(`{"messages": [
		{"role": "system", "content": "one"},
		{"role": "user", "content": "hi"},
		{"role": "system", "content": "two"}
	]}`)

	out, err := ConvertOpenAIToAnthropic(body)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", gjson.GetBytes(out, "system").String())
	assert.Equal(t, int64(1), gjson.GetBytes(out, "messages.#").Int())
}

func TestConvertDefaultsMaxTokens(t *testing.T) {
	out, err := ConvertOpenAIToAnthropic([]byte(`{"messages": [{"role": "user", "content": "hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(anthropicDefaultMaxTokens), gjson.GetBytes(out, "max_tokens").Int())
}

func TestConvertPreservesMultimodalContent(t *testing.T) {
	body := []byte(`{"messages": [{"role": "user", "content": [{"type": "text", "text": "look"}]}]}`)

	out, err := ConvertOpenAIToAnthropic(body)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(out, "messages.0.content").IsArray())
	assert.Equal(t, "look", gjson.GetBytes(out, "messages.0.content.0.text").String())
}

func TestConvertStopStringBecomesSequenceList(t *testing.T) {
	out, err := ConvertOpenAIToAnthropic([]byte(`{"messages": [], "stop": "END"}`))
	require.NoError(t, err)
	assert.Equal(t, `["END"]`, gjson.GetBytes(out, "stop_sequences").Raw)
}

func TestConvertDropsOpenAIOnlyKnobs(t *testing.T) {
	body := []byte(`{"messages": [], "frequency_penalty": 0.5, "logit_bias": {"50256": -100}, "n": 3}`)

	out, err := ConvertOpenAIToAnthropic(body)
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(out, "frequency_penalty").Exists())
	assert.False(t, gjson.GetBytes(out, "logit_bias").Exists())
	assert.False(t, gjson.GetBytes(out, "n").Exists())
}
