package services

import (
	"context"
	"fmt"
	"time"

	"socialfeed/config"

	"github.com/go-redis/redis/v8"
)

const redisPingTimeout = 3 * time.Second

// RedisClient - общий клиент для очереди перестроения и redis-бэкенда кеша. nil, если Redis недоступен.
var RedisClient *redis.Client

func InitRedis(redisConfig config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", client.Options().Addr, err)
	}
	RedisClient = client
	return nil
}

func CloseRedis() error {
	if RedisClient == nil {
		return nil
	}
	err := RedisClient.Close()
	RedisClient = nil
	return err
}
