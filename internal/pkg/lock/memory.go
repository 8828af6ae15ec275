package lock

import (
	"context"
	"errors"
	"time"
)

// MemoryMutex is an in-process Mutex.
type MemoryMutex struct {
	sem chan struct{}
}

func NewMemoryMutex() *MemoryMutex {
	return &MemoryMutex{sem: make(chan struct{}, 1)}
}

func (m *MemoryMutex) TryAcquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrConcurrentRun
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryMutex) Release(_ context.Context) error {
	select {
	case <-m.sem:
		return nil
	default:
		return errors.New("lock not held")
	}
}
