package remote

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the number of requests allowed in flight at once.
	DefaultConcurrency = 5
	// DefaultRequestsPerMinute matches the request budget of the Asana API.
	DefaultRequestsPerMinute = 1500
)

// Limiter bounds requests to the remote service across every project of a
// run: a fixed number in flight plus a per-minute budget.
type Limiter struct {
	slots    *semaphore.Weighted
	budget   *rate.Limiter
	requests atomic.Int64
}

// NewLimiter creates a limiter. Non-positive values select the defaults.
func NewLimiter(concurrency, requestsPerMinute int) *Limiter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &Limiter{
		slots:  semaphore.NewWeighted(int64(concurrency)),
		budget: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), concurrency),
	}
}

// Do runs fn once it holds a slot and a token from the request budget.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.slots.Release(1)
	if err := l.budget.Wait(ctx); err != nil {
		return err
	}
	l.requests.Add(1)
	return fn(ctx)
}

// Requests returns how many calls have been let through.
func (l *Limiter) Requests() int64 {
	return l.requests.Load()
}
