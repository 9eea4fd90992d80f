package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"queuepanel/pkg/logger"

	"github.com/google/uuid"
)

const (
	lockKeyPrefix      = "panel:lock:"
	defaultLockTTL     = 30 * time.Second
	lockAcquireTimeout = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock is a best-effort single-holder lock shared by every process serving the
// same panel. It guards writes such as the preference checkpoint.
type Lock struct {
	client *RedisClient
	key    string
	token  string
	ttl    time.Duration

	mu     sync.Mutex
	isHeld bool
}

// NewLock creates a lock named name. ttl <= 0 uses 30s.
func NewLock(client *RedisClient, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		client: client,
		key:    client.Key(lockKeyPrefix + name),
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to take the lock without waiting
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.GetClient().SetNX(acquireCtx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.mu.Lock()
	l.isHeld = acquired
	l.mu.Unlock()

	if !acquired {
		logger.DebugCtx(ctx, "lock %s held by another instance", l.key)
	}
	return acquired, nil
}

// Unlock releases the lock if this instance still owns it
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld {
		l.mu.Unlock()
		return nil
	}
	l.isHeld = false
	l.mu.Unlock()

	released, err := l.client.GetClient().Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if released == 0 {
		logger.WarnCtx(ctx, "lock %s expired before release", l.key)
	}
	return nil
}

// IsHeld reports whether the last TryLock succeeded and Unlock has not run
func (l *Lock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// WithLock runs fn while holding the lock. It reports false without calling fn
// when another instance holds it.
func (l *Lock) WithLock(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	acquired, err := l.TryLock(ctx)
	if err != nil || !acquired {
		return false, err
	}
	defer func() {
		if err := l.Unlock(ctx); err != nil {
			logger.WarnCtx(ctx, "%v", err)
		}
	}()
	return true, fn(ctx)
}
