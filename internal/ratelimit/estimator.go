package ratelimit

import (
	"github.com/tidwall/gjson"
)

// DefaultMaxTokens is assumed when a request does not set max_tokens.
const DefaultMaxTokens = 2000

// Estimator predicts the token cost of a request body before it is sent.
// Implementations are heuristics, not tokenizers; the token limiter's
// safety buffer absorbs estimation error.
type Estimator interface {
	Estimate(body []byte) int
}

// HeuristicEstimator approximates cost as one token per four characters of
// prompt text plus the requested max_tokens (DefaultMaxTokens when unset).
// It makes no claim of matching any real tokenizer.
type HeuristicEstimator struct{}

// Estimate sums chat message content, multimodal text items, the top-level
// prompt field and the system field, then adds the output budget.
func (HeuristicEstimator) Estimate(body []byte) int {
	chars := 0

	gjson.GetBytes(body, "messages").ForEach(func(_, message gjson.Result) bool {
		content := message.Get("content")
		switch {
		case content.Type == gjson.String:
			chars += len(content.String())
		case content.IsArray():
			content.ForEach(func(_, item gjson.Result) bool {
				chars += len(item.Get("text").String())
				return true
			})
		}
		return true
	})

	chars += len(gjson.GetBytes(body, "prompt").String())
	chars += len(gjson.GetBytes(body, "system").String())

	maxTokens := int(gjson.GetBytes(body, "max_tokens").Int())
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return chars/4 + maxTokens
}
