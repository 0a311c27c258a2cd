package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient sends requests with per-attempt timeouts, exponential backoff
// between attempts and a shared breaker. Responses with status >= 500 count
// as failures and are retried.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Timeout     time.Duration
}

// Post sends body to url and returns the final status code. The response
// body is drained and discarded.
func (c *HTTPClient) Post(ctx context.Context, url string, header http.Header, body []byte) (int, error) {
	if c == nil || c.Client == nil {
		return 0, errors.New("resilience: http client not configured")
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow(ctx) {
			return 0, ErrOpenCircuit
		}
		status, err := c.once(ctx, url, header, body)
		ok := err == nil && status < http.StatusInternalServerError
		if c.Breaker != nil {
			c.Breaker.Report(ctx, ok)
		}
		if ok {
			return status, nil
		}
		if err == nil {
			err = fmt.Errorf("resilience: upstream status %d", status)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(Backoff(c.BaseBackoff, attempt, c.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	return 0, lastErr
}

func (c *HTTPClient) once(ctx context.Context, url string, header http.Header, body []byte) (int, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	for k, v := range header {
		req.Header[k] = append([]string(nil), v...)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
