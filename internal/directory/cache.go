package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "orgscout:org:"

// RedisCache stores provider organization records in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps client. A zero ttl keeps entries until evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedisCache connects to addr and checks the connection.
func DialRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

func cacheKey(name string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(name))
}

// Get returns the cached record or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, name string) (*OrganizationInfo, error) {
	data, err := c.client.Get(ctx, cacheKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var info OrganizationInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding cached organization: %w", err)
	}
	return &info, nil
}

// Set stores info under name.
func (c *RedisCache) Set(ctx context.Context, name string, info OrganizationInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding organization: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(name), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
