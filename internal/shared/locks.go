package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderSyncLockKey builds redis keys serializing compensating-payment sync per order.
func OrderSyncLockKey(orderID int64) string {
	return fmt.Sprintf("payments:order:%d:sync", orderID)
}

// ErrLockBusy indicates the lock was held past the acquisition window.
var ErrLockBusy = errors.New("advisory lock busy")

// OrderLocker serializes a critical section per order.
type OrderLocker interface {
	WithOrderLock(ctx context.Context, orderID int64, fn func(context.Context) error) error
}

// RedisOrderLocker implements OrderLocker with a SetNX advisory lock.
type RedisOrderLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisOrderLocker builds a locker with the given lease TTL.
func NewRedisOrderLocker(client *redis.Client, ttl time.Duration) *RedisOrderLocker {
	return &RedisOrderLocker{client: client, ttl: ttl, wait: 50 * time.Millisecond}
}

// WithOrderLock acquires the per-order lock, runs fn, then releases it.
func (l *RedisOrderLocker) WithOrderLock(ctx context.Context, orderID int64, fn func(context.Context) error) error {
	key := OrderSyncLockKey(orderID)
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
		if err != nil {
			return fmt.Errorf("shared: acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("shared: %w: %s", ErrLockBusy, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.wait):
		}
	}
	defer l.client.Del(context.WithoutCancel(ctx), key)
	return fn(ctx)
}
