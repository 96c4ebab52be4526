package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of redis.Cmdable the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares entries between server replicas. Expiry is delegated to
// Redis key TTLs.
type RedisStore struct {
	client redisClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return newRedisStore(client, ttl)
}

func newRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "idempotency:", ttl: ttl, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry) error {
	cp := entry.clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	ttl := s.ttl
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = cp.CreatedAt.Add(ttl)
	} else {
		ttl = cp.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
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
