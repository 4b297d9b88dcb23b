// Package notify publishes best-effort realtime notifications to per-user
// and administrative channels. Publish failures are logged and must never
// fail the business operation that triggered them.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// AdminChannel receives events intended for storefront administrators.
const AdminChannel = "admin"

// UserChannel names the channel owned by a single shopper.
func UserChannel(userID string) string {
	return "user." + userID
}

type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

type message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sentAt"`
}

// RedisPublisher fans out over redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	logger *log.Logger
}

func NewRedisPublisher(client *redis.Client, logger *log.Logger) *RedisPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	body, err := json.Marshal(message{Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		p.logger.Printf("notify: marshal channel=%s event=%s error=%v", channel, event, err)
		return err
	}
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		p.logger.Printf("notify: publish channel=%s event=%s error=%v", channel, event, err)
		return err
	}
	return nil
}

// Nop discards every notification. Used in tests and when redis is not
// configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, interface{}) error { return nil }
