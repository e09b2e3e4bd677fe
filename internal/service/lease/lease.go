package lease

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes pipeline runs. Acquire returns false when another
// run currently holds the lease.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements Locker with SET NX so concurrent processes
// cannot both start a run. The TTL bounds how long a crashed run can
// block the next one.
type RedisLocker struct {
	cli *redis.Client
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(cli *redis.Client) *RedisLocker {
	return &RedisLocker{cli: cli}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.cli.SetNX(ctx, key, "1", ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, key string) error {
	return l.cli.Del(ctx, key).Err()
}

// LocalLocker is the in-process fallback when Redis is not configured.
// It only fences runs within a single process.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *LocalLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
