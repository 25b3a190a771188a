package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"maintenance-service/internal/model"
)

// RedisPublisher fans events out over pub/sub: once on the shared events
// channel and once on the channel of every recipient.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, event model.OutboxEvent) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, EventsChannel(p.prefix), body)
	for _, id := range event.RecipientIDs() {
		pipe.Publish(ctx, UserChannel(p.prefix, id), body)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish %s: %w", event.EventType, err)
	}
	return nil
}

// Close leaves the client open; it is shared with the rate limiter.
func (p *RedisPublisher) Close() error {
	return nil
}

func EventsChannel(prefix string) string {
	return prefix + ":events"
}

// UserChannel is the private channel of one user.
func UserChannel(prefix string, userID uint64) string {
	return fmt.Sprintf("%s:user:%d", prefix, userID)
}
