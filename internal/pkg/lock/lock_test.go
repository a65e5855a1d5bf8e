package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func testLocker(t *testing.T, l KeyedLocker) {
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok, "second TryLock on a held key must fail")

	// other keys are independent
	unlockB, ok, err := l.TryLock(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	unlockB()

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "a")
	require.True(t, errors.Is(err, ErrLockTimeout))

	unlock()
	unlock() // idempotent

	unlock, ok, err = l.TryLock(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	unlock()
}

func TestMemoryLocker(t *testing.T) {
	testLocker(t, NewMemoryLocker())
}

func TestMemoryLockerSerializes(t *testing.T) {
	l := NewMemoryLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxInside)

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Empty(t, l.entries, "idle keys are reclaimed")
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	l := NewRedisLocker(client, 5*time.Second)
	l.prefix = "go-cms:test-lock:" + time.Now().Format("150405.000000") + ":"
	testLocker(t, l)
}
