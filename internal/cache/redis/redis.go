package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Repository implements the cache.Store interface using Redis as backend.
type Repository struct {
	Client *redis.Client // Redis client instance
}

// NewClient creates a new redis client.
func NewClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   "",
		DB:         db,
		MaxRetries: 10,
	})
}

// Set sets a value with expiration in Redis.
func (r *Repository) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return r.Client.Set(ctx, key, value, expiration).Err()
}

// SetNX sets a value only when the key does not exist yet.
func (r *Repository) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, value, expiration).Result()
}

// Delete removes a key from Redis.
func (r *Repository) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

// ScanPrefix retrieves all key-value pairs whose key starts with prefix.
func (r *Repository) ScanPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	result := make(map[string]string)
	iter := r.Client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		value, err := r.Client.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		result[key] = value
	}
	return result, iter.Err()
}
