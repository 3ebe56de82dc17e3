package cache

import (
	"context"
	stderrors "errors"
	"time"

	"niena/internal/errors"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker provides cluster-wide mutual exclusion backed by Redis
type Locker struct {
	rs *redsync.Redsync
}

// NewLocker creates a redsync locker over client
func NewLocker(client *redis.Client) *Locker {
	return &Locker{rs: redsync.New(goredis.NewPool(client))}
}

// TryRun runs fn while holding the named lock for at most ttl. It does not wait:
// when another holder has the lock it returns false without calling fn.
func (l *Locker) TryRun(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	mutex := l.rs.NewMutex(keyPrefix+"lock:"+name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if lockHeld(err) {
			return false, nil
		}
		return false, errors.NewStorageError(errors.ErrCodeCache, "lock "+name+" is unavailable", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	runErr := fn(runCtx)

	// Unlock on a fresh context so a cancelled run still releases the lock
	unlockCtx, unlockCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer unlockCancel()
	if _, err := mutex.UnlockContext(unlockCtx); err != nil && runErr == nil {
		return true, errors.NewStorageError(errors.ErrCodeCache, "unlock "+name, err)
	}
	return true, runErr
}

// lockHeld reports whether a failed acquisition means another holder has the lock,
// as opposed to Redis being unreachable
func lockHeld(err error) bool {
	var taken *redsync.ErrTaken
	return stderrors.As(err, &taken) || stderrors.Is(err, redsync.ErrFailed)
}
