package backend

import (
	"context"

	"golang.org/x/time/rate"
)

// fetchLimiter bounds the backend-fetch pipeline stage's request rate against
// the node store (spec §5: "bounded pipeline concurrency between three
// stages"), adapted from the teacher's token-bucket rate limiter middleware.
type fetchLimiter struct {
	limiter *rate.Limiter
}

// newFetchLimiter builds a token-bucket limiter from rps/burst. A zero or
// negative rps disables limiting (returns a nil-backed no-op).
func newFetchLimiter(rps, burst int) *fetchLimiter {
	if rps <= 0 {
		return &fetchLimiter{}
	}

	return &fetchLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next fetch is permitted or ctx is cancelled.
func (f *fetchLimiter) Wait(ctx context.Context) error {
	if f == nil || f.limiter == nil {
		return nil
	}

	return f.limiter.Wait(ctx)
}
