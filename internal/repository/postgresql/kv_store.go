package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/database"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/kvstore"
	"github.com/jackc/pgx/v5"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS sync_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS sync_kv_expires_at_idx ON sync_kv (expires_at);
`

type kvStoreRepositoryImpl struct {
	db  *database.DB
	now func() time.Time
}

// NewKVStoreRepository stores reconciler bookkeeping in the sync_kv table.
// Call EnsureKVSchema once before use.
func NewKVStoreRepository(db *database.DB) kvstore.Store {
	return &kvStoreRepositoryImpl{db: db, now: time.Now}
}

// EnsureKVSchema creates the table and drops entries that expired while the
// process was down.
func EnsureKVSchema(ctx context.Context, db *database.DB) error {
	r := &kvStoreRepositoryImpl{db: db, now: time.Now}
	return WithTransaction(ctx, db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, kvSchema); err != nil {
			return fmt.Errorf("create sync_kv: %w", err)
		}
		_, err := r.purgeExpired(ctx)
		return err
	})
}

func (r *kvStoreRepositoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	q := GetQuerier(ctx, r.db)

	var value string
	err := q.QueryRow(ctx, `
		SELECT value FROM sync_kv
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
	`, key, r.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *kvStoreRepositoryImpl) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	q := GetQuerier(ctx, r.db)

	var expiresAt *time.Time
	if ttl > 0 {
		t := r.now().Add(ttl)
		expiresAt = &t
	}
	_, err := q.Exec(ctx, `
		INSERT INTO sync_kv (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *kvStoreRepositoryImpl) Delete(ctx context.Context, key string) error {
	q := GetQuerier(ctx, r.db)
	if _, err := q.Exec(ctx, `DELETE FROM sync_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (r *kvStoreRepositoryImpl) purgeExpired(ctx context.Context) (int64, error) {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM sync_kv WHERE expires_at IS NOT NULL AND expires_at <= $1`, r.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
