package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"vtu-backend/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventsChannel carries JSON-encoded domain.TransactionEvent payloads.
const EventsChannel = keyPrefix + "transaction_events"

// EventPublisher implements ports.EventPublisher over Redis pub/sub.
// Delivery is at-most-once; subscribers that are not connected miss events.
type EventPublisher struct {
	client  goredis.Cmdable
	channel string
}

func NewEventPublisher(client goredis.Cmdable) *EventPublisher {
	return &EventPublisher{client: client, channel: EventsChannel}
}

func (p *EventPublisher) Publish(ctx context.Context, event *domain.TransactionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", event.Type, err)
	}
	return nil
}
