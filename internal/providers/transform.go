package providers

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// anthropicDefaultMaxTokens is used when a converted request does not set
// max_tokens; the Messages API requires the field.
const anthropicDefaultMaxTokens = 1024

// ExtractModel extracts the model field from a JSON request body. Returns
// an empty string when the field is absent.
func ExtractModel(body []byte) string {
	return gjson.GetBytes(body, "model").String()
}

// ConvertOpenAIToAnthropic rewrites an OpenAI chat completion body into
// Anthropic Messages format:
//   - system-role messages are hoisted into the top-level system field,
//     joined with newlines when there are several
//   - remaining messages keep their role and content
//   - max_tokens defaults to anthropicDefaultMaxTokens when unset
//
// Fields both dialects share (model, stream, temperature, top_p, stop
// sequences) are carried over; OpenAI-only knobs are dropped.
func ConvertOpenAIToAnthropic(body []byte) ([]byte, error) {
	out := []byte(`{}`)
	var err error

	if model := gjson.GetBytes(body, "model"); model.Exists() {
		if out, err = sjson.SetBytes(out, "model", model.String()); err != nil {
			return nil, err
		}
	}

	system := ""
	messageIdx := 0
	var iterErr error
	gjson.GetBytes(body, "messages").ForEach(func(_, message gjson.Result) bool {
		role := message.Get("role").String()
		content := message.Get("content")
		if role == "system" {
			if system != "" {
				system += "\n"
			}
			system += content.String()
			return true
		}
		path := "messages." + strconv.Itoa(messageIdx)
		if out, iterErr = sjson.SetBytes(out, path+".role", role); iterErr != nil {
			return false
		}
		if out, iterErr = sjson.SetRawBytes(out, path+".content", []byte(content.Raw)); iterErr != nil {
			return false
		}
		messageIdx++
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}

	if system != "" {
		if out, err = sjson.SetBytes(out, "system", system); err != nil {
			return nil, err
		}
	}

	maxTokens := int(gjson.GetBytes(body, "max_tokens").Int())
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	if out, err = sjson.SetBytes(out, "max_tokens", maxTokens); err != nil {
		return nil, err
	}

	for _, field := range []string{"stream", "temperature", "top_p"} {
		if v := gjson.GetBytes(body, field); v.Exists() {
			if out, err = sjson.SetRawBytes(out, field, []byte(v.Raw)); err != nil {
				return nil, err
			}
		}
	}

	if stop := gjson.GetBytes(body, "stop"); stop.Exists() {
		raw := stop.Raw
		if stop.Type == gjson.String {
			raw = "[" + raw + "]"
		}
		if out, err = sjson.SetRawBytes(out, "stop_sequences", []byte(raw)); err != nil {
			return nil, err
		}
	}

	return out, nil
}
