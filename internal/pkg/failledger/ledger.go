// Package failledger remembers records whose last sync attempt failed so they
// are not retried until they change or the entry ages out.
package failledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/kvstore"
)

type Kind string

const (
	KindEvent   Kind = "event"
	KindTimeOff Kind = "timeoff"
)

// Key identifies one record of one employee.
type Key struct {
	EmployeeID string
	Kind       Kind
	RecordID   string
}

func (k Key) String() string {
	return fmt.Sprintf("faillog:%s:%s:%s", k.EmployeeID, k.Kind, k.RecordID)
}

// Ledger is a circuit breaker keyed by record and invalidated by any edit.
// Losing entries only causes extra retries.
type Ledger struct {
	store  kvstore.Store
	minTTL time.Duration
	maxTTL time.Duration
	rnd    func() float64
}

func New(store kvstore.Store, minTTL, maxTTL time.Duration) *Ledger {
	if maxTTL < minTTL {
		maxTTL = minTTL
	}
	return &Ledger{store: store, minTTL: minTTL, maxTTL: maxTTL, rnd: rand.Float64}
}

// RecordFailure stores the record's updatedAt as of the failed attempt.
func (l *Ledger) RecordFailure(ctx context.Context, key Key, updatedAt time.Time) {
	if err := l.store.Put(ctx, key.String(), stamp(updatedAt), l.ttl()); err != nil {
		slog.Warn("Ledger: failed to record failure", "key", key.String(), "error", err)
	}
}

// IsSuppressed is true while a live entry exists and the record has not
// been edited since the failure.
func (l *Ledger) IsSuppressed(ctx context.Context, key Key, currentUpdatedAt time.Time) bool {
	value, ok, err := l.store.Get(ctx, key.String())
	if err != nil {
		slog.Warn("Ledger: lookup failed, treating as not suppressed", "key", key.String(), "error", err)
		return false
	}
	return ok && value == stamp(currentUpdatedAt)
}

// Clear drops the entry after a successful attempt.
func (l *Ledger) Clear(ctx context.Context, key Key) {
	if err := l.store.Delete(ctx, key.String()); err != nil {
		slog.Warn("Ledger: failed to clear entry", "key", key.String(), "error", err)
	}
}

// ttl is drawn uniformly from [minTTL, maxTTL] so entries written in the same
// run do not all expire together.
func (l *Ledger) ttl() time.Duration {
	spread := l.maxTTL - l.minTTL
	if spread <= 0 {
		return l.minTTL
	}
	return l.minTTL + time.Duration(l.rnd()*float64(spread))
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
