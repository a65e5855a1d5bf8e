package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/3Eeeecho/go-cms/internal/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 只有持有者 token 匹配时才删除，避免误删别人在过期后拿到的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 多实例部署时使用的分布式锁 (SET NX PX)
type RedisLocker struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	retryBackoff time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLocker{
		client:       client,
		prefix:       "go-cms:lock:",
		ttl:          ttl,
		retryBackoff: 50 * time.Millisecond,
	}
}

func (r *RedisLocker) unlocker(key, token string) UnlockFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				logger.Warn("释放 Redis 锁失败", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

func (r *RedisLocker) TryLock(ctx context.Context, key string) (UnlockFunc, bool, error) {
	fullKey := r.prefix + key
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock: redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return r.unlocker(fullKey, token), true, nil
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	ticker := time.NewTicker(r.retryBackoff)
	defer ticker.Stop()
	for {
		unlock, ok, err := r.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
