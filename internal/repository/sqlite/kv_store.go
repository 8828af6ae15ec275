// Package sqlite keeps reconciler bookkeeping in an embedded database for
// single-node deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/kvstore"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS sync_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS sync_kv_expires_at_idx ON sync_kv (expires_at);
`

type kvStoreRepositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

// NewKVStoreRepository creates the schema if needed. Expiry is stored as
// unix milliseconds.
func NewKVStoreRepository(ctx context.Context, db *sql.DB, now func() time.Time) (kvstore.Store, error) {
	if now == nil {
		now = time.Now
	}
	r := &kvStoreRepositoryImpl{db: db, now: now}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("create sync_kv: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM sync_kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, r.nowMillis()); err != nil {
		return nil, fmt.Errorf("purge expired: %w", err)
	}
	return r, nil
}

func (r *kvStoreRepositoryImpl) nowMillis() int64 {
	return r.now().UnixMilli()
}

func (r *kvStoreRepositoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
		SELECT value FROM sync_kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, r.nowMillis()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *kvStoreRepositoryImpl) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: r.now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *kvStoreRepositoryImpl) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
