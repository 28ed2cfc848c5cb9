package notion

import (
	"errors"
	"fmt"
	"time"
)

// ErrDatabaseNotFound indicates the configured database ID does not exist or
// is not shared with the integration.
var ErrDatabaseNotFound = errors.New("notion database not found")

// RateLimitError is returned when the API keeps responding 429 after the
// client has exhausted its retries.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("notion rate limit exceeded (retry after %s)", e.RetryAfter)
}

// TransportError is returned when the client has exhausted its retries over
// network failures or 5xx responses.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notion request failed after retries: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is returned for HTTP 400 responses. These indicate a
// payload problem and are never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("notion rejected request: %s: %s", e.Code, e.Message)
}
