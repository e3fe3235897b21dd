package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourops/backend/internal/infrastructure/cache"
	"github.com/tourops/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader       = "Idempotency-Key"
	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store  cache.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects a mutating request whose Idempotency-Key was already
// used by the same tenant on the same path. Keys of requests that end in an
// error response are released so the client can retry. Store failures are
// logged and the request proceeds unguarded.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		raw := c.GetHeader(IdempotencyHeader)
		if raw == "" || cfg.Store == nil || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", c.GetString(RequestIDKey)))
			return
		}

		key := idempotencyScope(c) + ":" + raw
		ctx := c.Request.Context()

		claimed, err := cfg.Store.Claim(ctx, key, cfg.TTL)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicate, "Request with this Idempotency-Key was already processed",
				c.GetString(RequestIDKey)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := cfg.Store.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

func idempotencyScope(c *gin.Context) string {
	tenant := "-"
	if id, ok := GetTenantID(c); ok {
		tenant = id.String()
	}
	return tenant + ":" + c.Request.Method + " " + c.Request.URL.Path
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
