// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"lingodoc/config"

	"github.com/go-redis/redis/v8"
)

var (
	// StagingClient holds staged file bytes between checkout and finalization.
	StagingClient *redis.Client
)

// InitStagingCache initializes the Redis client backing the staged-file store.
func InitStagingCache() {
	StagingClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisStagingDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := StagingClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Staging): %v", err)
	}
}

// GetStagingClient returns the staged-file Redis client.
func GetStagingClient() *redis.Client {
	if StagingClient == nil {
		InitStagingCache()
	}
	return StagingClient
}
