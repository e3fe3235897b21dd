package capacity

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tourops/backend/internal/domain/shared"
)

// RetryPolicy bounds retries of transaction conflicts
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns 3 retries starting at 50ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// RetryOnConflict runs fn, retrying with exponential backoff while it fails with a
// retryable error. Business rule violations are returned on the first attempt.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		eb.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		eb.MaxInterval = policy.MaxInterval
	}
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if policy.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(eb, uint64(policy.MaxRetries))
	}

	return backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !shared.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
