package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/groblegark/audittrail/internal/model"
)

// Redis is a Cache backed by a shared Redis instance, so replicas serving the
// same queries warm each other's boundaries.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis instance at addr and verifies it answers.
func NewRedis(addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (model.Cursor, bool, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return model.Cursor{}, false, nil
	}
	if err != nil {
		return model.Cursor{}, false, fmt.Errorf("get boundary %s: %w", key, err)
	}

	var cur model.Cursor
	if err := json.Unmarshal([]byte(data), &cur); err != nil {
		return model.Cursor{}, false, fmt.Errorf("unmarshal boundary %s: %w", key, err)
	}
	return cur, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, cur model.Cursor) error {
	data, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("marshal boundary: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set boundary %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
