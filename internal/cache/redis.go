package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/watchfeed/internal/logger"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates and initializes a Redis client with connection pooling
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err, zap.String("address", addr))
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Redis client connected", zap.String("address", addr))

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	if rc == nil || rc.client == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rc.client.Ping(ctx).Err()
}
