package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

const keyPrefix = "sheetcheck:report:"

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis caches reports in Redis with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, ttl: opts.TTL}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*core.Report, bool, error) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var rep core.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &rep, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, rep *core.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
