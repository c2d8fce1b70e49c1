package availability

import (
	"context"
	"sync"
	"time"
)

// MemoryIndex keeps holds in process memory. Suitable for a single
// api-server instance; rebuilt from the appointment store on start.
type MemoryIndex struct {
	held sync.Map // key string -> Key
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) IsHeld(_ context.Context, key Key) (bool, error) {
	_, ok := m.held.Load(key.String())
	return ok, nil
}

func (m *MemoryIndex) Hold(_ context.Context, key Key) error {
	if _, loaded := m.held.LoadOrStore(key.String(), key); loaded {
		return ErrAlreadyHeld
	}
	return nil
}

func (m *MemoryIndex) Release(_ context.Context, key Key) error {
	m.held.Delete(key.String())
	return nil
}

func (m *MemoryIndex) Holds(_ context.Context) ([]Key, error) {
	var keys []Key
	m.held.Range(func(_, v any) bool {
		keys = append(keys, v.(Key))
		return true
	})
	return keys, nil
}

// MemoryLocker is a key-scoped mutex. Entries are dropped once no goroutine
// references them, so the map only grows with in-flight keys. A caller that
// cannot get the key within wait gets ErrLockNotAcquired.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

const defaultLockWait = 5 * time.Second

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock), wait: defaultLockWait}
}

func (l *MemoryLocker) WithLock(ctx context.Context, key Key, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := key.String()
	kl := l.ref(k)
	defer l.unref(k, kl)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLockNotAcquired
	}
	defer func() { <-kl.sem }()

	return fn(ctx)
}

func (l *MemoryLocker) ref(k string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[k]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[k] = kl
	}
	kl.refs++
	return kl
}

func (l *MemoryLocker) unref(k string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, k)
	}
}
