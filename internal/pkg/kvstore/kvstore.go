// Package kvstore is the best-effort key/value storage used for reconciler
// bookkeeping. Entries may vanish at any time; callers must tolerate that.
package kvstore

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the value and whether a live entry exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores value until ttl elapses. A non-positive ttl never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
