package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts events over redis pub/sub. Gate clients (the
// dashboard feed) subscribe to the channel through a socket fan-out that
// lives outside this service.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish marshals the payload as JSON and publishes it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	if p.client == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal broadcast payload for %s: %w", channel, err)
	}

	if err := p.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}

	return nil
}
