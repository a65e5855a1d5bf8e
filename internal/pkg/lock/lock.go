package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockTimeout 在 ctx 结束前没能拿到锁
var ErrLockTimeout = errors.New("lock: acquire timeout")

// UnlockFunc 释放锁，重复调用是安全的
type UnlockFunc func()

// KeyedLocker 按 key 加锁。不同 key 之间互不影响
type KeyedLocker interface {
	// TryLock 立即返回，ok 为 false 表示锁被他人持有
	TryLock(ctx context.Context, key string) (unlock UnlockFunc, ok bool, err error)
	// Lock 阻塞直到拿到锁或 ctx 结束
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// MergeKey 合并与清理共用的锁
func MergeKey(uploadID string) string {
	return "upload:merge:" + uploadID
}

// ChunkKey 同一分片序号的写入锁
func ChunkKey(uploadID string, index int) string {
	return fmt.Sprintf("upload:chunk:%s:%d", uploadID, index)
}
