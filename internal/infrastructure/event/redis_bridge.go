package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RedisPublisher is the subset of *redis.Client the bridge needs
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisBridge forwards capacity events to Redis pub/sub so dashboards attached
// to other instances see them. It subscribes to the in-memory bus like any other
// observer, so a Redis outage only costs live updates.
type RedisBridge struct {
	client     RedisPublisher
	prefix     string
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewRedisBridge creates a bridge publishing to channels named "<prefix>:<tenant id>"
func NewRedisBridge(client RedisPublisher, prefix string, logger *zap.Logger) *RedisBridge {
	if prefix == "" {
		prefix = "capacity"
	}
	return &RedisBridge{
		client:     client,
		prefix:     prefix,
		serializer: NewEventSerializer(),
		logger:     logger.Named("redis-bridge"),
	}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Channel returns the pub/sub channel for a tenant
func (b *RedisBridge) Channel(tenantID uuid.UUID) string {
	return b.prefix + ":" + tenantID.String()
}

// EventTypes implements shared.EventHandler
func (b *RedisBridge) EventTypes() []string {
	return []string{capacity.EventTypeCapacityUpdated}
}

// Handle implements shared.EventHandler
func (b *RedisBridge) Handle(ctx context.Context, event shared.DomainEvent) error {
	data, err := b.serializer.Encode(event)
	if err != nil {
		return err
	}

	channel := b.Channel(event.TenantID())
	receivers, err := b.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	b.logger.Debug("capacity event forwarded",
		zap.String("channel", channel),
		zap.String("event_id", event.EventID().String()),
		zap.Int64("receivers", receivers))
	return nil
}

var _ shared.EventHandler = (*RedisBridge)(nil)
