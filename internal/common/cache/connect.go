package cache

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(host string, port int, password string, db, ttlSec int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis_connection_failed", "Failed to connect to Redis", "", "", err.Error())
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis_connected", "Connected to Redis successfully", "", "")
	return &Redis{
		Client: client,
		TTL:    time.Duration(ttlSec) * time.Second,
	}, nil
}

func (r *Redis) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
		logger.Info("redis_connection_closed", "Redis connection closed", "", "")
	}
}
