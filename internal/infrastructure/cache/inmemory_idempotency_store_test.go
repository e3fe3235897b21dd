package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(time.Hour, clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		store, _ := newTestStore(t)

		ok, err := store.Claim(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Claim(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "duplicate claim must be refused")
	})

	t.Run("keys are independent", func(t *testing.T) {
		store, _ := newTestStore(t)

		ok, _ := store.Claim(ctx, "a", time.Hour)
		assert.True(t, ok)
		ok, _ = store.Claim(ctx, "b", time.Hour)
		assert.True(t, ok)
		assert.Equal(t, 2, store.Size())
	})

	t.Run("expired key can be claimed again", func(t *testing.T) {
		store, clock := newTestStore(t)

		ok, _ := store.Claim(ctx, "k", time.Minute)
		require.True(t, ok)

		clock.Advance(time.Minute)
		ok, err := store.Claim(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release frees the key", func(t *testing.T) {
		store, _ := newTestStore(t)

		ok, _ := store.Claim(ctx, "k", time.Hour)
		require.True(t, ok)
		require.NoError(t, store.Release(ctx, "k"))

		ok, _ = store.Claim(ctx, "k", time.Hour)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store, _ := newTestStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Claim(context.Background(), "same", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Claim(ctx, "short", time.Minute)
	_, _ = store.Claim(ctx, "long", time.Hour)
	clock.Advance(2 * time.Minute)

	store.sweep()

	assert.Equal(t, 1, store.Size())
	ok, _ := store.Claim(ctx, "long", time.Hour)
	assert.False(t, ok)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
