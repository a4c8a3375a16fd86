package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:challenge:"

// expiredRetention keeps an expired challenge around long enough for Verify
// to report it as expired instead of invalid.
const expiredRetention = 10 * time.Minute

// RedisBackend shares challenges between server instances.
type RedisBackend struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: redisKeyPrefix, now: time.Now}
}

// WithPrefix keeps this backend's keys apart from other stores on the same
// server.
func (b *RedisBackend) WithPrefix(prefix string) *RedisBackend {
	b.prefix = prefix
	return b
}

func (b *RedisBackend) Put(ctx context.Context, email string, challenge Challenge) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	ttl := challenge.ExpiresAt.Sub(b.now()) + expiredRetention
	if ttl <= 0 {
		ttl = expiredRetention
	}
	return b.client.Set(ctx, b.prefix+email, raw, ttl).Err()
}

func (b *RedisBackend) Get(ctx context.Context, email string) (*Challenge, error) {
	raw, err := b.client.Get(ctx, b.prefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out Challenge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *RedisBackend) Delete(ctx context.Context, email string) error {
	return b.client.Del(ctx, b.prefix+email).Err()
}

// ConnectRedis opens a client from a redis:// URL or a bare host:port and
// checks that the server answers.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
