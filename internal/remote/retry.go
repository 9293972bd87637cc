package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy bounds how often and how long a call is retried.
type Policy struct {
	// MaxAttempts is the total number of tries for transient failures.
	MaxAttempts int
	// BaseDelay is the first transient backoff; each further one doubles.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// DefaultRetryAfter is used when a rate limit response names no delay.
	DefaultRetryAfter time.Duration
	// MaxRetryAfter caps a server-requested delay. Zero means no cap.
	MaxRetryAfter time.Duration
	// MaxRateLimitWaits bounds rate-limit retries, which do not consume
	// transient attempts.
	MaxRateLimitWaits int
}

// DefaultPolicy returns the retry policy used for real runs.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          8 * time.Second,
		DefaultRetryAfter: 60 * time.Second,
		MaxRetryAfter:     5 * time.Minute,
		MaxRateLimitWaits: 10,
	}
}

// backoff returns the delay after the n-th transient failure (n >= 1).
func (p Policy) backoff(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) rateLimitDelay(e *Error) time.Duration {
	d := e.RetryAfter
	if d <= 0 {
		d = p.DefaultRetryAfter
	}
	if p.MaxRetryAfter > 0 && d > p.MaxRetryAfter {
		d = p.MaxRetryAfter
	}
	return d
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. Rate-limited calls wait for the server-requested delay;
// transient failures back off exponentially. The last error is returned.
func Retry(ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	transient, limited := 0, 0
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		var rerr *Error
		if !errors.As(err, &rerr) {
			return err
		}

		var delay time.Duration
		switch rerr.Kind {
		case KindRateLimited:
			limited++
			if limited > p.MaxRateLimitWaits {
				return err
			}
			delay = p.rateLimitDelay(rerr)
		case KindTransient:
			transient++
			if transient >= p.MaxAttempts {
				return err
			}
			delay = p.backoff(transient)
		default:
			return err
		}

		logger.Debug("retrying remote call",
			"op", op,
			"kind", rerr.Kind.String(),
			"delay", delay,
			"transient_failures", transient,
			"rate_limit_waits", limited,
		)
		if err := wait(ctx, delay); err != nil {
			return err
		}
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
