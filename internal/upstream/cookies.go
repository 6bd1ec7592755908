// Package upstream owns the outbound HTTP clients: a buffered pool for
// request/response calls and a streaming pool for SSE, both sharing one
// cookie jar so session affinity survives across pools.
package upstream

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Jar is a lock-guarded cookie jar shared by every outbound client. Both
// pools see writes immediately; there is no copying between per-pool jars,
// so a session cookie set on a buffered call is present on the next
// streaming call.
type Jar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
}

// NewJar creates the shared jar.
func NewJar() (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{inner: inner}, nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}
