// Package redact masks secret-shaped substrings before they reach a log sink.
//
// Redaction is irreversible and idempotent: redacting already-redacted text
// returns it unchanged, and text with no secret-shaped substring passes
// through byte for byte.
package redact

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// visiblePrefixLen is how many characters of a secret stay readable so
// operators can correlate a redacted key with their key inventory.
const visiblePrefixLen = 5

var (
	// OpenAI-style keys: sk-..., project keys sk-proj-..., Anthropic keys
	// sk-ant-.... The prefix plus the first five characters stay visible.
	keyPattern = regexp.MustCompile(`(sk-(?:proj-|ant-)?)([A-Za-z0-9]{5,})`)

	// Authorization bearer tokens.
	bearerPattern = regexp.MustCompile(`(Bearer\s+)([A-Za-z0-9._~+/=-]{1,})`)

	// "api_key": "<value>" JSON fragments.
	apiKeyFieldPattern = regexp.MustCompile(`("api_key"\s*:\s*")([^"]+)(")`)
)

// sensitiveHeaders are masked wholesale regardless of value shape.
var sensitiveHeaders = []string{"Authorization", "X-Api-Key", "Api-Key"}

func mask(secret string) string {
	if len(secret) <= visiblePrefixLen {
		return secret
	}
	// Already-masked values keep their shape so redaction stays idempotent.
	if strings.HasSuffix(secret, "...") {
		return secret
	}
	return secret[:visiblePrefixLen] + "..."
}

// Secret masks every secret-shaped substring in s.
func Secret(s string) string {
	s = keyPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := keyPattern.FindStringSubmatch(m)
		return sub[1] + mask(sub[2])
	})
	s = bearerPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := bearerPattern.FindStringSubmatch(m)
		return sub[1] + mask(sub[2])
	})
	s = apiKeyFieldPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := apiKeyFieldPattern.FindStringSubmatch(m)
		return sub[1] + mask(sub[2]) + sub[3]
	})
	return s
}

// Headers returns a copy of h safe for logging. Known-sensitive headers are
// truncated even when their value is not secret-shaped; every other value is
// passed through Secret.
func Headers(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		canonical := http.CanonicalHeaderKey(key)
		masked := lo.Map(values, func(v string, _ int) string {
			redacted := Secret(v)
			if redacted == v && lo.Contains(sensitiveHeaders, canonical) {
				// Not secret-shaped but still a credential header.
				redacted = mask(v)
			}
			return redacted
		})
		out[canonical] = masked
	}
	return out
}
