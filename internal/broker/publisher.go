// Package broker relays committed outbox events to the configured message
// broker. Delivery is at least once: an event is marked delivered only after
// the broker accepted it.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"maintenance-service/internal/config"
	"maintenance-service/internal/model"
)

// Publisher hands one event to a broker.
type Publisher interface {
	Publish(ctx context.Context, event model.OutboxEvent) error
	Close() error
}

// Envelope is the wire form of an outbox event.
type Envelope struct {
	ID          string          `json:"id"`
	EventType   model.EventType `json:"event_type"`
	AggregateID uint64          `json:"aggregate_id"`
	Recipients  []uint64        `json:"recipients"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewEnvelope(event model.OutboxEvent) Envelope {
	recipients := event.RecipientIDs()
	if recipients == nil {
		recipients = []uint64{}
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Envelope{
		ID:          event.ID.String(),
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Recipients:  recipients,
		Payload:     payload,
		OccurredAt:  event.CreatedAt.UTC(),
	}
}

func encode(event model.OutboxEvent) ([]byte, error) {
	body, err := json.Marshal(NewEnvelope(event))
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	return body, nil
}

// New builds the publisher selected by cfg.Broadcast.Driver. rdb may be nil
// unless the redis driver is selected.
func New(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (Publisher, error) {
	switch cfg.Broadcast.Driver {
	case config.BroadcastKafka:
		return NewKafkaPublisher(cfg.Broadcast.Kafka), nil
	case config.BroadcastAMQP:
		return NewAMQPPublisher(cfg.Broadcast.AMQP, log)
	case config.BroadcastRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis broadcast driver selected but redis is unavailable")
		}
		return NewRedisPublisher(rdb, cfg.Redis.ChannelPrefix), nil
	case config.BroadcastNone, "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown broadcast driver %q", cfg.Broadcast.Driver)
	}
}

// Noop accepts every event without sending it anywhere.
type Noop struct{}

func (Noop) Publish(context.Context, model.OutboxEvent) error { return nil }

func (Noop) Close() error { return nil }
