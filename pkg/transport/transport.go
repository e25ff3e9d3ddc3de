// Package transport builds the *http.Client used as a rest transport:
// cookie jar, user agent, default headers, timeout and rate limiting.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Version is reported in the default user agent.
var Version = "0.1.0"

// DefaultUserAgent returns the user agent sent when none is configured.
func DefaultUserAgent() string {
	return "restling/" + Version
}

// ErrTooManyRedirects is returned when the redirect limit is exceeded.
var ErrTooManyRedirects = errors.New("stopped after too many redirects")

// Builder configures an *http.Client.
type Builder struct {
	userAgent    string
	headers      http.Header
	timeout      time.Duration
	jar          http.CookieJar
	base         http.RoundTripper
	limiter      *rate.Limiter
	maxRedirects int
	noRedirects  bool
}

// NewBuilder creates a builder with a 30 second timeout and at most 10
// redirects.
func NewBuilder() *Builder {
	return &Builder{
		userAgent:    DefaultUserAgent(),
		headers:      http.Header{},
		timeout:      30 * time.Second,
		maxRedirects: 10,
	}
}

// WithUserAgent sets the User-Agent sent when a request has none.
func (b *Builder) WithUserAgent(ua string) *Builder {
	b.userAgent = ua
	return b
}

// WithHeader adds a default header.
func (b *Builder) WithHeader(key, value string) *Builder {
	b.headers.Add(key, value)
	return b
}

// WithTimeout sets the client timeout. Zero disables it.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithCookieJar sets the cookie jar.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.jar = jar
	return b
}

// WithRoundTripper sets the base round tripper. The default is a clone of
// http.DefaultTransport.
func (b *Builder) WithRoundTripper(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst. rps <= 0 removes the limit.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		b.limiter = nil
		return b
	}
	if burst < 1 {
		burst = 1
	}
	b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return b
}

// WithMaxRedirects sets how many redirects are followed.
func (b *Builder) WithMaxRedirects(n int) *Builder {
	b.maxRedirects = n
	return b
}

// WithoutRedirects returns redirect responses to the caller.
func (b *Builder) WithoutRedirects() *Builder {
	b.noRedirects = true
	return b
}

// Build returns the configured client.
func (b *Builder) Build() (*http.Client, error) {
	if b.timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: %s", b.timeout)
	}

	base := b.base
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	var rt http.RoundTripper = &headerTransport{
		base:      base,
		userAgent: b.userAgent,
		headers:   b.headers.Clone(),
	}
	if b.limiter != nil {
		rt = &limitedTransport{base: rt, limiter: b.limiter}
	}

	client := &http.Client{
		Transport: rt,
		Jar:       b.jar,
		Timeout:   b.timeout,
	}

	switch {
	case b.noRedirects:
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	default:
		limit := b.maxRedirects
		client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return ErrTooManyRedirects
			}
			return nil
		}
	}

	return client, nil
}

// headerTransport adds default headers the request does not already carry.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	missingUA := t.userAgent != "" && req.Header.Get("User-Agent") == ""
	missing := false
	for key := range t.headers {
		if _, ok := req.Header[key]; !ok {
			missing = true
			break
		}
	}
	if !missingUA && !missing {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	if missingUA {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, values := range t.headers {
		if _, ok := clone.Header[key]; !ok {
			clone.Header[key] = append([]string(nil), values...)
		}
	}
	return t.base.RoundTrip(clone)
}

func (t *headerTransport) CloseIdleConnections() {
	closeIdle(t.base)
}

// limitedTransport waits for the limiter before each request.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.base.RoundTrip(req)
}

func (t *limitedTransport) CloseIdleConnections() {
	closeIdle(t.base)
}

func closeIdle(rt http.RoundTripper) {
	if c, ok := rt.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
