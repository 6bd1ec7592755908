package security

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"api-firewall/internal/config"
	"api-firewall/internal/ratelimit"
)

// Violation kinds reported by Validate.
const (
	KindRateLimitExceeded = "rate_limit_exceeded"
	KindModelNotAllowed   = "model_not_allowed"
	KindMaxTokensExceeded = "max_tokens_exceeded"
	KindBlockedContent    = "blocked_content"
)

// Result is the outcome of a policy check. When OK is false, Kind names
// the violated rule, Detail is the client-facing message and Status the
// HTTP status to respond with.
type Result struct {
	OK     bool
	Kind   string
	Detail string
	Status int
}

func pass() Result { return Result{OK: true} }

func violation(kind, detail string, status int) Result {
	return Result{Kind: kind, Detail: detail, Status: status}
}

// Filter enforces the request policy: per-minute request admission, model
// allowlist, max_tokens ceiling and prohibited-content patterns.
type Filter struct {
	policy   config.FilterConfig
	requests ratelimit.RequestAdmitter
	blocked  []*regexp.Regexp
	allowed  map[string]struct{}
}

// NewFilter builds a filter from the policy. Blocked patterns must have
// been validated at config load time; an invalid pattern here is a
// programming error and panics.
func NewFilter(policy config.FilterConfig, requests ratelimit.RequestAdmitter) *Filter {
	blocked := lo.Map(policy.BlockedPrompts, func(p string, _ int) *regexp.Regexp {
		return regexp.MustCompile("(?i)" + p)
	})
	allowed := lo.Associate(policy.AllowedModels, func(m string) (string, struct{}) {
		return m, struct{}{}
	})
	return &Filter{policy: policy, requests: requests, blocked: blocked, allowed: allowed}
}

// Validate checks a request body against the policy. Checks run cheapest
// first; the first violated rule decides the result.
func (f *Filter) Validate(body []byte, path string) Result {
	if !f.policy.Enabled {
		return pass()
	}

	if f.requests != nil && !f.requests.Allow() {
		return violation(KindRateLimitExceeded, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	}

	endpoint := ClassifyPath(path)
	if endpoint == EndpointOther {
		return pass()
	}

	if r := f.checkModel(body); !r.OK {
		return r
	}
	if r := f.checkMaxTokens(body); !r.OK {
		return r
	}
	return f.checkContent(body, endpoint)
}

// checkModel rejects models outside the allowlist. A request without a
// model field passes; the upstream rejects it with a better message.
func (f *Filter) checkModel(body []byte) Result {
	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		return pass()
	}
	if _, ok := f.allowed[model]; !ok {
		return violation(KindModelNotAllowed,
			fmt.Sprintf("Model %s is not allowed", model), http.StatusForbidden)
	}
	return pass()
}

func (f *Filter) checkMaxTokens(body []byte) Result {
	maxTokens := int(gjson.GetBytes(body, "max_tokens").Int())
	if maxTokens > 0 && maxTokens > f.policy.MaxTokens {
		return violation(KindMaxTokensExceeded,
			fmt.Sprintf("Max tokens %d exceeds limit of %d", maxTokens, f.policy.MaxTokens),
			http.StatusForbidden)
	}
	return pass()
}

// checkContent scans every text field a model would see: chat message
// content (string or multimodal text items), the legacy prompt field and
// the system field.
func (f *Filter) checkContent(body []byte, endpoint Endpoint) Result {
	texts := collectTexts(body, endpoint)
	for _, text := range texts {
		for _, pattern := range f.blocked {
			if pattern.MatchString(text) {
				return violation(KindBlockedContent,
					"The prompt contains prohibited content", http.StatusForbidden)
			}
		}
	}
	return pass()
}

func collectTexts(body []byte, endpoint Endpoint) []string {
	var texts []string

	appendContent := func(content gjson.Result) {
		switch {
		case content.Type == gjson.String:
			texts = append(texts, content.String())
		case content.IsArray():
			content.ForEach(func(_, item gjson.Result) bool {
				if text := item.Get("text").String(); text != "" {
					texts = append(texts, text)
				}
				return true
			})
		}
	}

	switch endpoint {
	case EndpointChatCompletion, EndpointMessage:
		gjson.GetBytes(body, "messages").ForEach(func(_, message gjson.Result) bool {
			appendContent(message.Get("content"))
			return true
		})
		appendContent(gjson.GetBytes(body, "system"))
	case EndpointCompletion, EndpointEmbedding:
		appendContent(gjson.GetBytes(body, "prompt"))
		appendContent(gjson.GetBytes(body, "input"))
	}

	return texts
}
