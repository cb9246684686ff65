package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// RegionCache is a read-through JSON cache whose keys are grouped into
// named regions that can be cleared at once.
type RegionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRegionCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RegionCache {
	return &RegionCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RegionCache) Key(region, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, region, key)
}

func (c *RegionCache) pattern(region string) string {
	return fmt.Sprintf("%s:%s:*", c.prefix, region)
}

// Get decodes the cached value into dest and reports whether it was present.
func (c *RegionCache) Get(ctx context.Context, region, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.Key(region, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RegionCache) Set(ctx context.Context, region, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(region, key), data, c.ttl).Err()
}

// Clear deletes every key of the region. Keys are gathered with SCAN before
// any is deleted, then removed in batches of scanBatch.
func (c *RegionCache) Clear(ctx context.Context, region string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.pattern(region), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	for len(keys) > 0 {
		n := min(len(keys), scanBatch)
		if err := c.client.Del(ctx, keys[:n]...).Err(); err != nil {
			return err
		}
		keys = keys[n:]
	}
	return nil
}
