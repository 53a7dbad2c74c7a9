package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pitchday/contexts/live-contest/voting-session/ports"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans relayed events out on one Redis pub/sub channel for
// scoreboards and audit consumers outside the process.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

type redisMessage struct {
	Topic string              `json:"topic"`
	Event ports.EventEnvelope `json:"event"`
}

func NewRedisPublisher(addr string, password string, channel string, logger *slog.Logger) (*RedisPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "pitchday.voting"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(redisMessage{Topic: topic, Event: event})
	if err != nil {
		return fmt.Errorf("encode redis message: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		p.logger.Error("redis publish failed",
			"event", "redis_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"channel", p.channel,
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return fmt.Errorf("publish to redis: %w", err)
	}
	p.logger.Debug("redis event published",
		"event", "redis_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"channel", p.channel,
		"topic", topic,
		"event_id", event.EventID,
		"receivers", receivers,
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
