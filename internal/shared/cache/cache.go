package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// JSONCache stores JSON values under a key prefix.
type JSONCache struct {
	rdb    *redis.Client
	prefix string
}

func NewJSONCache(rdb *redis.Client, prefix string) *JSONCache {
	return &JSONCache{rdb: rdb, prefix: prefix}
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the cached value into dst.
func (c *JSONCache) Get(ctx context.Context, k string, dst any) error {
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", k, err)
	}
	return nil
}

func (c *JSONCache) Set(ctx context.Context, k string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(k), raw, ttl).Err()
}

func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Deduper guards one-shot operations with SETNX.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce returns true the first time scope+key is seen within the ttl.
// When redis is unavailable the operation is allowed.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	ok, err := d.rdb.SetNX(ctx, fmt.Sprintf("dedup:%s:%s", scope, key), 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release forgets a key so the operation can be retried.
func (d *Deduper) Release(ctx context.Context, scope, key string) {
	d.rdb.Del(ctx, fmt.Sprintf("dedup:%s:%s", scope, key))
}
