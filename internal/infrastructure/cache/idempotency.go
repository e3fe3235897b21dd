// Package cache holds short-lived request state shared across handlers.
package cache

import (
	"context"
	"time"
)

// IdempotencyStore remembers Idempotency-Key values so a retried mutating
// request is not applied twice
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so the request may be retried.
	Release(ctx context.Context, key string) error
	Close() error
}
