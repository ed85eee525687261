package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Seeker14491/distancelog/internal/changelist"
)

// DefaultChannel is the pub/sub channel entries are published to when none
// is configured.
const DefaultChannel = "distancelog:changes"

// publishTimeout bounds the publication of one batch of entries.
const publishTimeout = 5 * time.Second

// Publisher is the subset of a Redis client used for notification.
// [redis.Client] implements it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes appended changelist entries as JSON messages on a Redis
// pub/sub channel, one message per entry.
type Redis struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

// NewRedis creates a [Redis] notifier publishing through client. An empty
// channel uses [DefaultChannel]; a nil logger uses [slog.Default].
func NewRedis(client Publisher, channel string, logger *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Connect creates a Redis client for addr and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Notify publishes entries in order and returns the number published.
//
// Notification is best-effort: failures are logged and the remaining entries
// are still attempted. The changelist file stays the source of truth.
func (r *Redis) Notify(ctx context.Context, entries []changelist.Entry) int {
	if len(entries) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	published := 0
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			r.logger.Warn("failed to encode changelist entry",
				"map_name", e.MapName,
				"error", err,
			)
			continue
		}

		receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
		if err != nil {
			r.logger.Warn("failed to publish changelist entry",
				"channel", r.channel,
				"map_name", e.MapName,
				"error", err,
			)
			continue
		}
		published++

		r.logger.Debug("changelist entry published",
			"channel", r.channel,
			"map_name", e.MapName,
			"receivers", receivers,
		)
	}
	return published
}
