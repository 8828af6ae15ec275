package postgresql

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/database"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockPollInterval = 250 * time.Millisecond

// advisoryLockRepositoryImpl holds a session-level advisory lock on a pinned
// pool connection. The lock dies with the connection, so a crashed process
// never leaves it behind.
type advisoryLockRepositoryImpl struct {
	db  *database.DB
	key int64

	mu   sync.Mutex
	conn *pgxpool.Conn
}

// NewAdvisoryLockRepository returns a Mutex shared by every process that
// uses the same name against the same database.
func NewAdvisoryLockRepository(db *database.DB, name string) lock.Mutex {
	return &advisoryLockRepositoryImpl{db: db, key: lockKey(name)}
}

func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

func (r *advisoryLockRepositoryImpl) TryAcquire(ctx context.Context, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return lock.ErrConcurrentRun
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, r.key).Scan(&ok); err != nil {
			conn.Release()
			return fmt.Errorf("try advisory lock: %w", err)
		}
		if ok {
			r.conn = conn
			return nil
		}
		if !time.Now().Before(deadline) {
			conn.Release()
			return lock.ErrConcurrentRun
		}

		wait := min(lockPollInterval, time.Until(deadline))
		select {
		case <-ctx.Done():
			conn.Release()
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *advisoryLockRepositoryImpl) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return errors.New("lock not held")
	}
	conn := r.conn
	r.conn = nil

	var ok bool
	err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, r.key).Scan(&ok)
	if err != nil {
		// Closing the session drops the lock server-side.
		_ = conn.Conn().Close(ctx)
		conn.Release()
		return fmt.Errorf("advisory unlock: %w", err)
	}
	conn.Release()
	if !ok {
		return errors.New("advisory lock was not held by this session")
	}
	return nil
}
