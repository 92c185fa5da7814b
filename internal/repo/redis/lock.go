package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

var (
	ErrLockHeld = errors.New("lock held by another instance")
	ErrLockLost = errors.New("lock lost before work finished")
)

// Locker hands out cluster-wide mutexes backed by redsync.
type Locker struct {
	rs *redsync.Redsync
}

func NewLocker(client *goredislib.Client) *Locker {
	return &Locker{rs: redsync.New(goredis.NewPool(client))}
}

// TryRun executes fn only if the named lock could be taken in a single attempt.
// The lock is extended every ttl/3 while fn runs; if an extension fails the
// context passed to fn is cancelled so the holder stops before another
// instance can take over.
func (l *Locker) TryRun(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	mutex := l.rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		if lockHeld(err) {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock %q: %w", name, err)
	}
	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(runCtx, mutex, ttl, cancel)
	}()

	err := fn(runCtx)
	lost := errors.Is(context.Cause(runCtx), ErrLockLost)
	cancel(nil)
	<-done

	if lost {
		return errors.Join(err, fmt.Errorf("lock %q: %w", name, ErrLockLost))
	}
	return err
}

func keepAlive(ctx context.Context, mutex *redsync.Mutex, ttl time.Duration, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(max(ttl/3, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := mutex.ExtendContext(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil || !ok {
				cancel(ErrLockLost)
				return
			}
		}
	}
}

func lockHeld(err error) bool {
	var takenPtr *redsync.ErrTaken
	var taken redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &takenPtr) || errors.As(err, &taken)
}
