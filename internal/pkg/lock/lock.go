// Package lock provides the run-level mutual exclusion used to keep two
// reconciliation runs from touching the same records at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrConcurrentRun = errors.New("another reconciliation run holds the lock")

// Mutex is a cross-process lock. TryAcquire waits at most timeout and fails
// with ErrConcurrentRun instead of queueing.
type Mutex interface {
	TryAcquire(ctx context.Context, timeout time.Duration) error
	Release(ctx context.Context) error
}

// WithLock runs fn while holding m. The lock is released on every exit path,
// including panics.
func WithLock(ctx context.Context, m Mutex, timeout time.Duration, fn func(ctx context.Context) error) (err error) {
	if err := m.TryAcquire(ctx, timeout); err != nil {
		return err
	}
	defer func() {
		// ctx may already be cancelled by the deadline.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := m.Release(releaseCtx); relErr != nil {
			slog.Error("Lock: release failed", "error", relErr)
			if err == nil {
				err = fmt.Errorf("release lock: %w", relErr)
			}
		}
	}()
	return fn(ctx)
}
