package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker provides short-lived mutual exclusion backed by Redis SET NX.
// A nil client degrades to always-acquire, which is only acceptable in
// single-instance development setups.
type Locker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLocker constructs a Locker.
func NewLocker(client *redis.Client, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locker{client: client, logger: logger}
}

// Acquire attempts to take the named lock for ttl. It returns a release
// function and whether the lock was obtained. Release is best-effort and only
// deletes the key when it still holds this acquisition's token.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.client == nil {
		return func() {}, true, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Detached context: release should still run when the caller's
		// context was cancelled mid-run.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		current, err := l.client.Get(ctx, key).Result()
		if err != nil || current != token {
			return
		}
		if err := l.client.Del(ctx, key).Err(); err != nil {
			l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, true, nil
}

// SetOnce records key for ttl and reports whether it was newly set. Used as a
// durable, user-scoped idempotency marker for webhook deliveries.
func (l *Locker) SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set idempotency key %s: %w", key, err)
	}
	return ok, nil
}
