package locker

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrLocked is returned when the keys could not be taken before the wait expired.
var ErrLocked = errors.New("resource is locked by another request")

// Release gives back every key taken by one Acquire call.
type Release func(ctx context.Context) error

// Locker takes a set of keys all-or-nothing.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// normalize sorts and dedupes keys so concurrent callers take them in the same order.
func normalize(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}

// retry polls try until it succeeds, ctx ends or wait elapses.
func retry(ctx context.Context, wait, interval time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLocked
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
