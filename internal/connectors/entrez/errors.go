package entrez

import (
	"errors"
	"fmt"
	"time"
)

// Entrez-specific errors.
var (
	// ErrEmptyQuery indicates an empty topic query was submitted.
	ErrEmptyQuery = errors.New("entrez: empty query")

	// ErrRetriesExhausted indicates a request failed more times than the
	// configured attempt bound allows.
	ErrRetriesExhausted = errors.New("entrez: retries exhausted")
)

// RateLimitError indicates the API quota was exceeded. The request is
// retried after the backoff period, never dropped.
type RateLimitError struct {
	// RetryAfter is how long to wait before the next attempt.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("entrez: rate limit exceeded, retry after %s", e.RetryAfter)
}

// APIError represents a non-retryable Entrez error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("entrez: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsRetryable reports whether the request may be retried: rate limits,
// server-side failures and transport errors are transient; 4xx responses
// other than 429 are not.
func IsRetryable(err error) bool {
	if IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Anything else (transport-level failure) is treated as transient.
	return err != nil && !errors.Is(err, ErrEmptyQuery)
}
