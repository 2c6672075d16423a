// Package httpclient builds the outbound HTTP clients used by the provider
// adapters: tuned timeouts and pooling, a client-side rate limit, and a single
// retry on 429 or 5xx.
package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout         = 15 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 8
)

// Options configures New.
type Options struct {
	Timeout time.Duration
	// RPS caps requests per second across the client; 0 disables limiting.
	RPS   float64
	Burst int
	Retry RetryPolicy
}

// New returns a client whose transport rate-limits and retries per opts.
func New(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	t := &Transport{Base: base, Policy: opts.Retry}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		t.Limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &http.Client{Timeout: opts.Timeout, Transport: t}
}

// Transport waits on Limiter before every attempt and applies Policy.
type Transport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
	Policy  RetryPolicy
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) roundTrip(req *http.Request) (*http.Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.base().RoundTrip(req)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.roundTrip(req)
	if err != nil {
		return nil, err
	}
	wait, ok := t.Policy.retryAfter(resp)
	if !ok || !replayable(req) {
		return resp, nil
	}
	drain(resp)
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-time.After(wait):
	}
	req2 := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		req2.Body = body
	}
	return t.roundTrip(req2)
}

// replayable reports whether req can be sent a second time.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
