package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertDeduper suppresses alerts already sent within a TTL.
type AlertDeduper interface {
	// FirstSeen marks key as sent and reports whether it was not already marked.
	FirstSeen(ctx context.Context, key string) (bool, error)
	Close() error
}

type redisAlertDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisAlertDeduper builds a deduper keyed by alert key.
func NewRedisAlertDeduper(addr, password string, db int, ttl time.Duration, prefix string) (AlertDeduper, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newRedisAlertDeduper(client, ttl, prefix), nil
}

func newRedisAlertDeduper(client *redis.Client, ttl time.Duration, prefix string) *redisAlertDeduper {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "spread_alert"
	}
	return &redisAlertDeduper{client: client, ttl: ttl, prefix: prefix}
}

func (d *redisAlertDeduper) key(alertKey string) string {
	return fmt.Sprintf("%s:%s", d.prefix, alertKey)
}

func (d *redisAlertDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	if d == nil || d.client == nil {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, d.key(key), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

func (d *redisAlertDeduper) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
