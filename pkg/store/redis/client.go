package redis

import (
	"context"
	"fmt"

	"queuepanel/pkg/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient Redis client wrapper
type RedisClient struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient creates Redis client
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client, keyPrefix: cfg.Redis.KeyPrefix}, nil
}

// WrapClient wraps an existing client
func WrapClient(client *redis.Client, keyPrefix string) *RedisClient {
	return &RedisClient{client: client, keyPrefix: keyPrefix}
}

// GetClient retrieves the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// Key prefixes key with the configured namespace
func (r *RedisClient) Key(key string) string {
	return r.keyPrefix + key
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
