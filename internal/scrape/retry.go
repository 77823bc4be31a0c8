package scrape

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy defines how transient fetch failures are retried.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultPolicy returns the retry budget used when a site does not
// configure its own.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Retry executes fn with exponential backoff until it succeeds, the
// retry budget is exhausted, or the context is cancelled.
func Retry(ctx context.Context, policy Policy, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(backoff(policy, attempt)):
		}
	}

	return fmt.Errorf("max retries exceeded (%d): %w", policy.MaxRetries, lastErr)
}

func backoff(policy Policy, attempt int) time.Duration {
	d := float64(policy.InitialBackoff) * math.Pow(policy.BackoffFactor, float64(attempt))
	if d > float64(policy.MaxBackoff) {
		d = float64(policy.MaxBackoff)
	}
	return time.Duration(d)
}
