package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourops/backend/internal/infrastructure/cache"
	"github.com/tourops/backend/internal/interfaces/http/dto"
)

type failingStore struct{}

func (failingStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func (failingStore) Release(context.Context, string) error { return nil }

func (failingStore) Close() error { return nil }

func idempotencyRouter(t *testing.T, store cache.IdempotencyStore, status *int, calls *int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID(), Tenant(DefaultTenantConfig()), Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour}))
	handle := func(c *gin.Context) {
		*calls++
		c.Status(*status)
	}
	r.POST("/items/:id/changes", handle)
	r.GET("/items/:id/availability", handle)
	return r
}

func sendWithKey(r *gin.Engine, method, path, tenant, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(TenantHeaderKey, tenant)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency(t *testing.T) {
	tenant := uuid.NewString()

	t.Run("duplicate key is rejected", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusOK, 0
		r := idempotencyRouter(t, store, &status, &calls)

		w := sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "k-1")
		assert.Equal(t, http.StatusOK, w.Code)

		w = sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "k-1")
		assert.Equal(t, http.StatusConflict, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeDuplicate, resp.Error.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("scope is tenant and path", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusOK, 0
		r := idempotencyRouter(t, store, &status, &calls)

		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "k")
		sendWithKey(r, http.MethodPost, "/items/b/changes", tenant, "k")
		sendWithKey(r, http.MethodPost, "/items/a/changes", uuid.NewString(), "k")
		assert.Equal(t, 3, calls)
	})

	t.Run("failed request releases the key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusConflict, 0
		r := idempotencyRouter(t, store, &status, &calls)

		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "retry-me")
		status = http.StatusOK
		w := sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "retry-me")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, calls)
	})

	t.Run("no key or safe method passes through", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusOK, 0
		r := idempotencyRouter(t, store, &status, &calls)

		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "")
		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "")
		sendWithKey(r, http.MethodGet, "/items/a/availability", tenant, "g")
		sendWithKey(r, http.MethodGet, "/items/a/availability", tenant, "g")
		assert.Equal(t, 4, calls)
		assert.Equal(t, 0, store.Size())
	})

	t.Run("oversized key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusOK, 0
		r := idempotencyRouter(t, store, &status, &calls)

		w := sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, strings.Repeat("x", 256))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, calls)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		status, calls := http.StatusOK, 0
		r := idempotencyRouter(t, failingStore{}, &status, &calls)

		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "k")
		sendWithKey(r, http.MethodPost, "/items/a/changes", tenant, "k")
		assert.Equal(t, 2, calls)
	})
}
