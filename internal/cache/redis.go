package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/oracle-consensus/internal/model"
)

// Redis stores observations as JSON strings with an expiry.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

// Dial parses a redis:// URL, connects and pings.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Set writes obs under price:{symbol}, replacing any previous value.
func (c *Redis) Set(ctx context.Context, obs model.Observation, ttl time.Duration) error {
	data, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	if err := c.client.Set(ctx, Key(obs.Symbol), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", Key(obs.Symbol), err)
	}
	return nil
}

// Get reads the live observation for symbol.
func (c *Redis) Get(ctx context.Context, symbol string) (model.Observation, error) {
	data, err := c.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Observation{}, ErrNotFound
	}
	if err != nil {
		return model.Observation{}, fmt.Errorf("redis get %s: %w", Key(symbol), err)
	}

	var obs model.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		c.logger.Warn("corrupt cache entry", "key", Key(symbol), "err", err)
		return model.Observation{}, fmt.Errorf("decode %s: %w", Key(symbol), err)
	}
	return obs, nil
}

// Ping checks the connection to the Redis server.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}
