package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"

	requestsPerSecond = 3
	maxRetries        = 5
)

// Client is a thin transport for the Notion REST API. Every request goes
// through the shared rate limiter, and 429 and 5xx responses are retried
// with exponential backoff (honoring Retry-After when present).
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	limiter    *Limiter
	retryDelay time.Duration
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		baseURL:    defaultBaseURL,
		limiter:    NewLimiter(requestsPerSecond, time.Second),
		retryDelay: time.Second,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	var lastRetryAfter time.Duration
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retryAfter, done, err := c.doOnce(ctx, method, path, body, out)
		if done {
			return err
		}
		// a nil err on a retryable response means 429; anything else is a
		// transport failure
		lastErr = err
		lastRetryAfter = retryAfter

		// Exponential backoff capped at 30 seconds, same as the item
		// processing retries. Retry-After wins when the server sent one.
		delay := min(time.Duration(1<<attempt)*c.retryDelay, 30*time.Second)
		if retryAfter > 0 {
			delay = retryAfter
		}

		slog.Debug("Retrying Notion request", "path", path, "attempt", attempt+1, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return &TransportError{Err: lastErr}
	}
	return &RateLimitError{RetryAfter: lastRetryAfter}
}

// doOnce performs a single request. done=false means the caller should retry.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) (time.Duration, bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, true, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return 0, true, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return 0, true, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp), false, nil

	case resp.StatusCode >= 500:
		return 0, false, fmt.Errorf("notion server error: %s", resp.Status)

	case resp.StatusCode == http.StatusNotFound:
		return 0, true, fmt.Errorf("%s: %w", path, ErrDatabaseNotFound)

	case resp.StatusCode == http.StatusBadRequest:
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			apiErr.Message = "unreadable error body"
		}
		return 0, true, &ValidationError{Code: apiErr.Code, Message: apiErr.Message}

	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, true, fmt.Errorf("notion error %s: %s", resp.Status, string(payload))
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}
