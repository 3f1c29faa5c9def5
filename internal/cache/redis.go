package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/redis/go-redis/v9"
)

// pendingTTL bounds how long a crashed request can hold a key.
const pendingTTL = time.Minute

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
	}
}

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, requestHash string) (*Record, bool, error) {
	redisKey := recordKey(scope, key)
	pending, err := json.Marshal(Record{Pending: true, RequestHash: requestHash})
	if err != nil {
		return nil, false, fmt.Errorf("marshal pending record failed: %w", err)
	}

	ok, err := r.client.SetNX(ctx, redisKey, pending, pendingTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	data, err := r.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, ErrRecordVanished
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal record failed: %w", err)
	}
	return &rec, false, nil
}

func (r *RedisIdempotencyStore) Complete(ctx context.Context, scope, key string, rec Record) error {
	rec.Pending = false
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record failed: %w", err)
	}
	if err := r.client.Set(ctx, recordKey(scope, key), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := r.client.Del(ctx, recordKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func recordKey(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}
