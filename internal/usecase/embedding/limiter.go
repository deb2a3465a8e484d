package embedding

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is the pause applied after a provider rate-limit response.
const DefaultBackoff = 30 * time.Second

// RateLimiter is a token bucket with a provider-imposed pause on top.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
// rps <= 0 disables the token bucket; the backoff pause still applies.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Backoff pauses all requests for d (DefaultBackoff when d <= 0).
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}
