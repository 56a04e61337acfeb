package runlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress is returned when another run holds the lock.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

const lockKey = "lock:scrape-run"

// releaseScript deletes the lock only if it still holds our token, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock is a single-holder Redis lock shared by every crawler instance.
type Lock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLock constructs a lock whose lease expires after ttl.
func NewLock(rdb *redis.Client, ttl time.Duration) *Lock {
	return &Lock{rdb: rdb, ttl: ttl}
}

// Acquire takes the lock or returns ErrRunInProgress. The returned release
// func must be called when the run ends.
func (l *Lock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}
	return release, nil
}

// LocalLock is the single-process fallback used when Redis is not configured.
type LocalLock struct {
	mu sync.Mutex
}

// Acquire takes the lock or returns ErrRunInProgress without blocking.
func (l *LocalLock) Acquire(context.Context) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, nil
}
