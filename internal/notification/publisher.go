package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suteetoe/leasedesk/internal/model"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Publisher pushes a stored notification to connected clients
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

// RedisPublisher publishes each notification on "<prefix>:<user id>"
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel names the per-user channel
func (p *RedisPublisher) Channel(userID uint) string {
	return fmt.Sprintf("%s:%d", p.prefix, userID)
}

func (p *RedisPublisher) Publish(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	return errors.Wrap(p.client.Publish(ctx, p.Channel(n.UserID), body).Err(), "redis publish")
}
