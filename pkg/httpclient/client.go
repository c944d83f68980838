// Package httpclient builds the pooled HTTP clients shared by the search
// executor and the redirect resolver.
package httpclient

import (
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	maxTransportRetries = 3
	retryBaseDelay      = 500 * time.Millisecond
)

// Browser user agents rotated per process so resolution traffic does not
// advertise a Go default agent.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// RandomUserAgent picks one agent string for the lifetime of a client.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// transport injects the chosen user agent and retries idempotent requests
// that fail at the network level. Status-based handling (429, 5xx) belongs to
// the executor, which owns the attempt budget.
type transport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	retryable := clone.Body == nil && (clone.Method == http.MethodGet || clone.Method == http.MethodHead)
	if !retryable {
		return t.base.RoundTrip(clone)
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < maxTransportRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-clone.Context().Done():
				return nil, clone.Context().Err()
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
		}
		resp, err = t.base.RoundTrip(clone)
		if err == nil {
			return resp, nil
		}
	}
	return resp, err
}

// New returns a connection-pooled client with a randomized user agent and a
// 60 second overall timeout per request.
func New() *http.Client {
	base := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &transport{
			base:      base,
			userAgent: RandomUserAgent(),
		},
	}
}

// NoRedirect returns a client sharing c's transport that reports redirects
// instead of following them.
func NoRedirect(c *http.Client) *http.Client {
	return &http.Client{
		Timeout:   c.Timeout,
		Transport: c.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
