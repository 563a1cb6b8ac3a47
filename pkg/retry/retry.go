// Package retry provides the bounded retry/backoff policy applied at the
// boundary adapters for the metrics and cluster-state sources. The core
// computation stays retry-agnostic.
package retry

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Policy retries an operation a bounded number of times with an
// exponential backoff curve between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     wait.Backoff
}

// Default returns a policy with the given attempt bound and initial delay,
// doubling up to a 10s cap.
func Default(maxAttempts int, initial time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff: wait.Backoff{
			Duration: initial,
			Factor:   2.0,
			Jitter:   0.1,
			Steps:    maxAttempts,
			Cap:      10 * time.Second,
		},
	}
}

// Do runs fn until it succeeds, the attempt bound is exhausted, or the
// context is canceled. The last error is returned.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := p.Backoff // Step mutates, work on a copy

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff.Step()):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
