// Package http wraps net/http with the JSON POST and retry behaviour the
// outbound integrations share.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Client struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient returns a client with the given overall timeout. A zero timeout
// leaves the deadline to the request context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: 100 * time.Millisecond,
	}
}

// WithRetries sets how many times a failed request is retried.
func (c *Client) WithRetries(n int) *Client {
	if n < 0 {
		n = 0
	}
	c.maxRetries = n
	return c
}

func (c *Client) WithBackoff(d time.Duration) *Client {
	c.backoff = d
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

// PostJSON posts body to url until it gets a 200 or runs out of retries.
// Backoff doubles per attempt. The caller closes the returned body.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<(attempt-1))):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode == http.StatusOK {
				return resp, nil
			}
			resp.Body.Close()
			err = fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
