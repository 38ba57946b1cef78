package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SliceLock holds a session-scoped Postgres advisory lock for the duration
// of a single deploy call. Mirrors the teacher's cluster-leader election in
// internal/zeitwork/server.go (dedicated pool.Acquire + TrySessionAdvisoryLock
// + deferred release), keyed per slice instead of a single global key.
type SliceLock struct {
	conn *pgxpool.Conn
	key  int64
}

// TryAcquireSliceLock attempts to take the advisory lock for sliceID on a
// dedicated pooled connection. Returns ok=false (not an error) if another
// session already holds it, so callers can map that straight to a 409.
func TryAcquireSliceLock(ctx context.Context, pool *pgxpool.Pool, sliceID int64) (*SliceLock, bool, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for advisory lock: %w", err)
	}

	var acquired bool
	row := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, sliceID)
	if err := row.Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	return &SliceLock{conn: conn, key: sliceID}, true, nil
}

// Release unlocks and returns the connection to the pool. Safe to call
// once; callers defer it immediately after a successful acquire.
func (l *SliceLock) Release(ctx context.Context) {
	if l == nil {
		return
	}
	l.conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, l.key)
	l.conn.Release()
}
