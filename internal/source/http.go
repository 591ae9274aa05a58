package source

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "NewsIngest/1.0"

type HTTPConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
}

// NewHTTPClient returns a resty client that retries transport errors, 429
// and 5xx responses until MaxAttempts requests were made, waiting RetryWait
// between them.
func NewHTTPClient(cfg HTTPConfig) *resty.Client {
	c := resty.New()
	c.SetBaseURL(cfg.BaseURL)
	c.SetTimeout(cfg.Timeout)
	c.SetHeader("Accept", "application/json")
	c.SetHeader("User-Agent", userAgent)

	if cfg.MaxAttempts > 1 {
		c.SetRetryCount(cfg.MaxAttempts - 1)
		c.SetRetryWaitTime(cfg.RetryWait)
		c.SetRetryMaxWaitTime(cfg.RetryWait)
		c.AddRetryCondition(shouldRetry)
	}

	return c
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
}

// DecodeJSON rejects non-2xx responses and decodes the body into dest.
func DecodeJSON(resp *resty.Response, dest any) error {
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), truncate(resp.String(), 256))
	}
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
