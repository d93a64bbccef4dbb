// Package oanda implements the broker contract against OANDA's v3 REST API.
// All numeric fields in OANDA responses arrive as JSON strings and are
// coerced at decode time; nothing string-typed escapes this package.
package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// PracticeURL is OANDA's practice/demo environment.
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is OANDA's live trading environment.
	LiveURL = "https://api-fxtrade.oanda.com"

	// minRequestInterval keeps the client inside the practice-tier rate
	// limit of ~30 requests per second.
	minRequestInterval = time.Second / 30
)

// Granularity represents the candle time frame.
type Granularity string

const (
	M1  Granularity = "M1"
	M5  Granularity = "M5"
	M15 Granularity = "M15"
	M30 Granularity = "M30"
	H1  Granularity = "H1"
	H4  Granularity = "H4"
	D   Granularity = "D"
)

// Client is an OANDA v3 REST client scoped to one account.
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	backoff    Backoff
	log        *zap.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a client for the given token and account. practice
// selects the demo environment. A nil logger is replaced with a no-op
// logger.
func NewClient(token, accountID string, practice bool, log *zap.Logger) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:   baseURL,
		token:     token,
		accountID: accountID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: DefaultBackoff(),
		log:     log,
	}
}

// apiError is OANDA's error envelope.
type apiError struct {
	ErrorMessage string `json:"errorMessage"`
}

// request performs one rate-limited, retried API call and decodes the JSON
// response into out. body, when non-nil, is sent as JSON.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.backoff.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.Delay(attempt - 1)
			c.log.Warn("retrying OANDA request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		c.throttle()

		retryable, err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

// doOnce executes a single HTTP round trip. The bool reports whether the
// failure is worth retrying (429, 5xx, transport errors).
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if out == nil {
			return false, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiMessage(raw))
	default:
		return false, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiMessage(raw))
	}
}

func apiMessage(raw []byte) string {
	var e apiError
	if err := json.Unmarshal(raw, &e); err == nil && e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return string(raw)
}

// throttle spaces calls at least minRequestInterval apart.
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := minRequestInterval - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}
