// Package lock provides per-key mutual exclusion. Keys look like "property:12" or "booking:40".
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/metrics"
)

// Locker serializes work per key. Lock blocks until the key is free or ctx is done,
// and returns a release func that must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Acquire locks key, waiting at most wait (0 = until ctx is done).
// Running out of wait while ctx is still live is reported as apperrors.Busy.
func Acquire(ctx context.Context, l Locker, key string, wait time.Duration) (func(), error) {
	start := time.Now()
	lctx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	unlock, err := l.Lock(lctx, key)
	metrics.LockWaitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.KindBusy, err, fmt.Sprintf("%s is busy with another request, try again", key))
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return unlock, nil
}

func PropertyKey(id int) string {
	return fmt.Sprintf("property:%d", id)
}

func BookingKey(id int) string {
	return fmt.Sprintf("booking:%d", id)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and removed when idle.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// size is the number of live keys (tests)
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
