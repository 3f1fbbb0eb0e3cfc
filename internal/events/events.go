// FilePath: internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rainwatch/rainhub/internal/config"
	nuts "github.com/vaudience/go-nuts"
)

// Topics published on the ingestion path
const (
	TopicDeviceUpdate  = "device:update"
	TopicRainNew       = "rain:new"
	TopicImageNew      = "image:new"
	TopicDeviceCapture = "device:capture"
)

const publishTimeout = 2 * time.Second

// Publisher broadcasts ingestion events to connected observers.
// Publishing is fire-and-forget: no delivery guarantee, no persistence,
// and it must never block or fail the ingestion call path.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// RedisPublisher fans events out over Redis pub/sub channels
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects the pub/sub client and verifies the server
// is reachable
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	nuts.L.Infof("[Events] Connected to redis at %s:%d", cfg.Host, cfg.Port)
	return &RedisPublisher{client: client}, nil
}

// Publish marshals the payload and publishes it asynchronously. Failures
// (marshal errors, no subscribers, dead connection) are logged and
// otherwise ignored.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nuts.L.Errorf("[Events] Failed to marshal payload for %s: %v", topic, err)
		return
	}

	go func() {
		// detached from the request context so fan-out survives the
		// response being written
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.client.Publish(pubCtx, topic, data).Err(); err != nil {
			nuts.L.Warnf("[Events] Publish to %s failed: %v", topic, err)
		}
	}()
}

// Close releases the redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher discards all events; used in tests and when no fan-out
// backend is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, payload any) {}
