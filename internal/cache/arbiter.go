package cache

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long an operation waits for access.
const DefaultLockTimeout = 30 * time.Second

// exclusiveWeight is the full semaphore weight; holding it excludes every
// other operation.
const exclusiveWeight = 1 << 30

// arbiter orders access to the collection. Point operations share it;
// structural operations (bulk deletes, compaction, full scans, size) hold it
// exclusively. The semaphore serves waiters in arrival order, so once an
// exclusive request is queued, later point operations wait behind it.
type arbiter struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newArbiter(timeout time.Duration) *arbiter {
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}
	return &arbiter{sem: semaphore.NewWeighted(exclusiveWeight), timeout: timeout}
}

// shared acquires access for a point operation.
func (a *arbiter) shared() (func(), error) { return a.acquire(1) }

// exclusive acquires access for a structural operation.
func (a *arbiter) exclusive() (func(), error) { return a.acquire(exclusiveWeight) }

func (a *arbiter) acquire(n int64) (func(), error) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.sem.Acquire(ctx, n); err != nil {
		return nil, ErrArbitrationTimeout
	}
	return func() { a.sem.Release(n) }, nil
}
