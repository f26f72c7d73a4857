package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DashboardStatsKeyFmt is keyed by UTC day (YYYYMMDD).
const DashboardStatsKeyFmt = "dashboard:stats:%s"

var client *redis.Client

// Init connects to redis. On failure the client stays nil and every helper below
// becomes a no-op, so the service keeps working without a cache.
func Init(addr, password string) error {
	if addr == "" {
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return err
	}
	client = c
	return nil
}

// SetClient replaces the client; tests use it to plug in a local server or nil.
func SetClient(c *redis.Client) {
	client = c
}

func Enabled() bool {
	return client != nil
}

func GetJSON(ctx context.Context, key string, dst any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("[Cache] set %s: %v", key, err)
	}
}

func Delete(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Cache] delete: %v", err)
	}
}

func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
