package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"www.github.com/Wanderer0074348/CalSync/src/config"
)

// NewRedisClient connects to redis and verifies the connection with a
// bounded ping. The returned client is shared by the OAuth state store.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
