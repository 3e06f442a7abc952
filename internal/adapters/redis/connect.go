// Package redis holds the go-redis backed adapters.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input and pings it.
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	var client *goredis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := goredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = goredis.NewClient(opt)
	} else {
		client = goredis.NewClient(&goredis.Options{Addr: redisURL})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
