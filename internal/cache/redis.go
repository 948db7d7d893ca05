package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/price-tracker/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes the Redis client and verifies the connection.
func ConnectRedis(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	opt, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 5 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 5 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 10
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connection done", slog.String("addr", opt.Addr))
	return client, nil
}
