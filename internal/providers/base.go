package providers

import (
	"strings"
)

// BaseTarget carries the fields and URL logic shared by every backend.
type BaseTarget struct {
	name    string
	baseURL string
	apiKey  string
}

// NewBaseTarget creates a base target. The base URL keeps whatever version
// segment it was configured with; BuildURL reconciles it with the inbound
// path.
func NewBaseTarget(name, baseURL, apiKey string) BaseTarget {
	return BaseTarget{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the target identifier.
func (t *BaseTarget) Name() string {
	return t.name
}

// BaseURL returns the backend base URL.
func (t *BaseTarget) BaseURL() string {
	return t.baseURL
}

// BuildURL joins the base URL and the inbound path. When the base URL
// already ends in a version segment (".../v1") the path's leading version
// segment is dropped, so a caller hitting /v1/chat/completions against a
// versioned base does not produce ".../v1/v1/chat/completions".
func (t *BaseTarget) BuildURL(path string) string {
	path = "/" + strings.TrimLeft(path, "/")
	if baseIsVersioned(t.baseURL) {
		path = stripVersionSegment(path)
	}
	return t.baseURL + path
}

func baseIsVersioned(baseURL string) bool {
	idx := strings.LastIndex(baseURL, "/")
	if idx < 0 {
		return false
	}
	last := baseURL[idx+1:]
	if len(last) < 2 || last[0] != 'v' {
		return false
	}
	for _, c := range last[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func stripVersionSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.Index(trimmed, "/")
	if idx < 0 {
		return path
	}
	first := trimmed[:idx]
	if len(first) >= 2 && first[0] == 'v' {
		digits := true
		for _, c := range first[1:] {
			if c < '0' || c > '9' {
				digits = false
				break
			}
		}
		if digits {
			return trimmed[idx:]
		}
	}
	return path
}

// TransformBody returns the body and path unchanged. Backends that speak
// the caller's dialect inherit this.
func (t *BaseTarget) TransformBody(body []byte, path string) ([]byte, string, error) {
	return body, path, nil
}
