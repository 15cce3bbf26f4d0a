package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/saeid-a/CoachSync/internal/observability"
)

const sourceRedis = "redis"

// RedisFeed carries change events between service instances over a Redis
// pub/sub channel. Writers publish through it; Run relays every received
// event into the local broker.
type RedisFeed struct {
	client  *redis.Client
	channel string
	broker  *Broker
}

func NewRedisFeed(client *redis.Client, channel string, broker *Broker) *RedisFeed {
	return &RedisFeed{client: client, channel: channel, broker: broker}
}

func (f *RedisFeed) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (f *RedisFeed) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription %s closed", f.channel)
			}
			event, err := ParseChangeEvent([]byte(message.Payload))
			if err != nil {
				log.Printf("redis change feed: %v", err)
				continue
			}
			observability.IncFeedEvent(event.Table, sourceRedis)
			_ = f.broker.Publish(ctx, event)
		}
	}
}
