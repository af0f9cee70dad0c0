package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockNotObtained is returned when an outlet lock stays held by another
// request for longer than the configured wait.
var ErrLockNotObtained = errors.New("outlet lock not obtained")

// RedisLocker serializes session open/close and Z-Report generation per outlet
// across every API replica.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, wait: wait}
}

func outletLockKey(outletID uuid.UUID) string {
	return fmt.Sprintf("lock:outlet:%s", outletID)
}

// Lock blocks until the outlet lock is held, the wait elapses or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, outletID uuid.UUID) (func(), error) {
	const backoff = 100 * time.Millisecond
	retries := int(l.wait / backoff)

	key := outletLockKey(outletID)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}

	return func() {
		// Release must not depend on the request context, which may already be done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("outlet lock release failed")
		}
	}, nil
}

// LocalLocker is the in-process equivalent of RedisLocker for single-replica
// deployments (STORAGE_DRIVER=memory) and tests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[uuid.UUID]chan struct{}), wait: wait}
}

func (l *LocalLocker) slot(outletID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[outletID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[outletID] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, outletID uuid.UUID) (func(), error) {
	ch := l.slot(outletID)

	var timeout <-chan time.Time
	if l.wait > 0 {
		t := time.NewTimer(l.wait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrLockNotObtained
	}
}
