// Package httputil provides an http.Client wrapper that retries transient
// failures with jittered exponential backoff.
package httputil

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Doer is satisfied by *http.Client and *RetryClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*RetryClient)(nil)

// RetryConfig controls how many times and how far apart requests are retried.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RetryClient retries 429, 5xx and network errors for idempotent requests.
// Other requests, such as a POST that starts a render, are retried only when
// the server cannot have acted on them: a 429 or a failed dial. Requests
// carrying a body must set GetBody (http.NewRequest does for bytes and
// strings readers).
type RetryClient struct {
	client *http.Client
	config RetryConfig
}

// DefaultRetryConfig retries twice, starting at 500ms and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// NewRetryClient wraps client. A MaxRetries of zero disables retries; the
// other zero fields fall back to DefaultRetryConfig.
func NewRetryClient(client *http.Client, config RetryConfig) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}

	defaults := DefaultRetryConfig()
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier == 0 {
		config.Multiplier = defaults.Multiplier
	}

	return &RetryClient{
		client: client,
		config: config,
	}
}

// Do sends req, retrying while the failure looks transient and the request
// context is alive. The last response or error is returned on exhaustion.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	delay := c.config.InitialDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}

			if sleepErr := sleep(req.Context(), applyJitter(delay)); sleepErr != nil {
				return nil, sleepErr
			}
			delay = min(time.Duration(float64(delay)*c.config.Multiplier), c.config.MaxDelay)
		}

		resp, err = c.client.Do(req)
		if attempt == c.config.MaxRetries || !shouldRetry(req, resp, err) {
			return resp, err
		}

		if resp != nil {
			_ = resp.Body.Close()
		}
	}

	return resp, err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetry(req *http.Request, resp *http.Response, err error) bool {
	if req.Context().Err() != nil {
		return false
	}
	if !idempotent(req) {
		return neverReachedServer(resp, err)
	}

	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return true
		}
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return resp.StatusCode >= 500 && resp.StatusCode < 600
}

// neverReachedServer reports failures after which the server cannot have
// started work on the request.
func neverReachedServer(resp *http.Response, err error) bool {
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return true
		}
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr)
	}
	return resp.StatusCode == http.StatusTooManyRequests
}

// idempotent follows net/http's rule: safe methods, PUT and DELETE, or any
// request carrying an Idempotency-Key header.
func idempotent(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodPut, http.MethodDelete:
		return true
	}
	_, ok := req.Header["Idempotency-Key"]
	return ok
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}
