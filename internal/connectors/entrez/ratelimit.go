package entrez

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// AnonymousRate is the documented quota without an API key (req/s).
	AnonymousRate = 3

	// KeyedRate is the documented quota with an API key (req/s).
	KeyedRate = 10

	// defaultBackoff is applied after a 429 when the response carries no
	// Retry-After hint.
	defaultBackoff = 10 * time.Second
)

// Throttle enforces the Entrez request quota. One throttle is shared by
// every request the connector makes, so the budget holds across all
// in-flight topic queries, not per query.
type Throttle struct {
	bucket *rate.Limiter

	mu           sync.Mutex
	backoffUntil time.Time
}

// NewThrottle creates a throttle for the given requests-per-second budget.
func NewThrottle(rps float64) *Throttle {
	if rps <= 0 {
		rps = AnonymousRate
	}
	return &Throttle{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Wait blocks until a request may be sent: first any 429 backoff period,
// then the token bucket.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	until := t.backoffUntil
	t.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return t.bucket.Wait(ctx)
}

// RecordRateLimit sets a shared backoff period after a 429 response.
func (t *Throttle) RecordRateLimit(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultBackoff
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	until := time.Now().Add(retryAfter)
	if until.After(t.backoffUntil) {
		t.backoffUntil = until
	}
}
