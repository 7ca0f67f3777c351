package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrOrderLocked indicates another request is mutating the same order.
var ErrOrderLocked = errors.New("order is locked by another operation")

// OrderLockKey builds redis keys for order critical sections.
func OrderLockKey(orderID int64) string {
	return fmt.Sprintf("sales:order:%d:lock", orderID)
}

// OrderLocker serializes status mutations per order via redislock.
// It is advisory: storage-level guards remain the source of truth.
type OrderLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewOrderLocker constructs an OrderLocker.
func NewOrderLocker(client *redis.Client, ttl time.Duration) *OrderLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &OrderLocker{locker: redislock.New(client), ttl: ttl}
}

// Acquire takes the per-order lock and returns a release function.
// A nil locker acquires nothing and releases nothing.
func (l *OrderLocker) Acquire(ctx context.Context, orderID int64) (func(), error) {
	if l == nil || l.locker == nil {
		return func() {}, nil
	}
	lock, err := l.locker.Obtain(ctx, OrderLockKey(orderID), l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrOrderLocked
	}
	if err != nil {
		return nil, fmt.Errorf("order lock: %w", err)
	}
	release := func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}
	return release, nil
}
