package locker

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalize([]string{"c", "a", "b", "a"}))
	assert.Empty(t, normalize(nil))
}

func TestLocalLocker_ExclusiveAndReleased(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "table:1", "table:2")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "table:2", "table:3")
	assert.ErrorIs(t, err, ErrLocked)

	// disjoint keys are not blocked
	other, err := l.Acquire(ctx, "table:3")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")

	again, err := l.Acquire(ctx, "table:2")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalLocker_WaitsForRelease(t *testing.T) {
	l := NewLocalLocker(time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "table:1")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = release(ctx)
	}()

	second, err := l.Acquire(ctx, "table:1")
	require.NoError(t, err)
	require.NoError(t, second(ctx))
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker(2 * time.Second)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "table:7")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker(time.Second)
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" || testing.Short() {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	l := NewRedisLocker(rdb, 5*time.Second, 50*time.Millisecond, zap.NewNop())
	keys := []string{"test:table:" + time.Now().Format("150405.000"), "test:table:x"}

	release, err := l.Acquire(ctx, keys...)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, keys[1])
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))

	again, err := l.Acquire(ctx, keys[1])
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
