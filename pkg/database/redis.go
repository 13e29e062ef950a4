package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis returns nil when redisURL is empty; features backed by redis
// then switch themselves off. redisURL is either a redis:// URL or host:port.
func ConnectRedis(ctx context.Context, redisURL string, logger *zap.Logger) *redis.Client {
	if redisURL == "" {
		logger.Warn("REDIS_URL is empty, rate limiting and the change feed are disabled")
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{
			Addr: redisURL,
			DB:   0,
		}
	}
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 500 * time.Millisecond

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis connection failed at startup", zap.Error(err))
	} else {
		logger.Info("Redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}

	return client
}
