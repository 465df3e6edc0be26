package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// incrWithTTL 自增计数，首次创建时设置过期时间（固定窗口限流）。
func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// allowWithinWindow 在 Redis 不可用时放行，只在明确超限时拒绝。
func allowWithinWindow(ctx context.Context, client redisRateCounter, key string, limit int, window time.Duration) bool {
	if client == nil || limit <= 0 {
		return true
	}
	count, err := incrWithTTL(ctx, client, key, window)
	if err != nil {
		return true
	}
	return count <= int64(limit)
}
