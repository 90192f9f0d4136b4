/**
 * Redis Client for the Plan Review Worker
 *
 * Caches raw reviewer responses for audit, keyed by submission ID. The
 * cache is best effort: the authoritative comment record lives in
 * PostgreSQL, Redis only keeps the unparsed upstream text around long
 * enough for a human to inspect a bad decode.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rawResponseKeyPrefix = "planreview:raw:"

// RedisClient handles raw response caching
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(redisURL string, ttl time.Duration) (*RedisClient, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisClient{client: client, ttl: ttl}, nil
}

// CacheRawResponse stores the unparsed reviewer response under the
// submission ID with the configured TTL.
func (r *RedisClient) CacheRawResponse(ctx context.Context, submissionID string, raw string) error {
	if submissionID == "" {
		return fmt.Errorf("submission ID is required")
	}

	key := rawResponseKeyPrefix + submissionID
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache raw response: %w", err)
	}

	return nil
}

// GetRawResponse retrieves a cached raw response. Returns an empty
// string when the entry has expired or was never written.
func (r *RedisClient) GetRawResponse(ctx context.Context, submissionID string) (string, error) {
	if submissionID == "" {
		return "", fmt.Errorf("submission ID is required")
	}

	key := rawResponseKeyPrefix + submissionID
	raw, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get raw response: %w", err)
	}

	return raw, nil
}

// Ping checks Redis connectivity
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
