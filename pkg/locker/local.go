package locker

import (
	"context"
	"sync"
	"time"
)

// LocalLocker serializes callers inside one process. It is used when no Redis
// address is configured and in tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		held: make(map[string]struct{}),
		wait: wait,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalize(keys)

	err := retry(ctx, l.wait, 5*time.Millisecond, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, k := range keys {
			if _, busy := l.held[k]; busy {
				return false, nil
			}
		}
		for _, k := range keys {
			l.held[k] = struct{}{}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, k := range keys {
				delete(l.held, k)
			}
		})
		return nil
	}, nil
}
