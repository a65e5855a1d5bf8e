package lock

import (
	"context"
	"fmt"
	"sync"
)

type entry struct {
	ch   chan struct{} // 容量为 1，放入即持有
	refs int
}

// MemoryLocker 进程内的 keyed lock，空闲的 key 会被回收
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*entry)}
}

func (m *MemoryLocker) acquireRef(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *MemoryLocker) releaseRef(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

func (m *MemoryLocker) unlocker(key string, e *entry) UnlockFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.releaseRef(key, e)
		})
	}
}

func (m *MemoryLocker) TryLock(ctx context.Context, key string) (UnlockFunc, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e := m.acquireRef(key)
	select {
	case e.ch <- struct{}{}:
		return m.unlocker(key, e), true, nil
	default:
		m.releaseRef(key, e)
		return nil, false, nil
	}
}

func (m *MemoryLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	e := m.acquireRef(key)
	select {
	case e.ch <- struct{}{}:
		return m.unlocker(key, e), nil
	case <-ctx.Done():
		m.releaseRef(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}
}
