package hashindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix is the Redis key prefix for stored hashes.
	keyPrefix = "riptide:phash:"
	// referenceField names the per-site reference entry.
	referenceField = "!reference"
)

// RedisIndex stores hashes in Redis so multiple rippers on the same
// host share one hash history.
type RedisIndex struct {
	client *redis.Client
}

// NewRedisIndex creates a Redis-backed index.
func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func redisKey(site, variant string) string {
	return keyPrefix + site + ":" + variant
}

// Put records a hash and updates the site reference.
func (r *RedisIndex) Put(ctx context.Context, site, variant string, hash uint64) error {
	value := strconv.FormatUint(hash, 16)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisKey(site, variant), value, 0)
	pipe.Set(ctx, redisKey(site, referenceField), value, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store hash: %w", err)
	}
	return nil
}

// VariantHash returns the known hash of a variant.
func (r *RedisIndex) VariantHash(ctx context.Context, site, variant string) (uint64, bool, error) {
	return r.get(ctx, redisKey(site, variant))
}

// ReferenceHash returns the site's reference hash.
func (r *RedisIndex) ReferenceHash(ctx context.Context, site string) (uint64, bool, error) {
	return r.get(ctx, redisKey(site, referenceField))
}

func (r *RedisIndex) get(ctx context.Context, key string) (uint64, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get hash: %w", err)
	}
	hash, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt hash value %q: %w", value, err)
	}
	return hash, true, nil
}
