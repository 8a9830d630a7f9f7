package migration

import (
	"context"
	"database/sql"
	"fmt"
)

// advisoryLockKey identifies shopfaq's schema lock among other tenants of the
// same postgres cluster.
const advisoryLockKey int64 = 5_170_332_604

// acquireAdvisoryLock waits, bounded by ctx, until no other deploy is
// migrating. Advisory locks belong to a session, so one pooled connection is
// held until the returned release runs.
func acquireAdvisoryLock(ctx context.Context, db *sql.DB) (func(context.Context) error, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin connection for schema lock: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", advisoryLockKey); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for schema lock: %w", err)
	}

	release := func(ctx context.Context) error {
		defer conn.Close()
		var held bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey).Scan(&held); err != nil {
			return fmt.Errorf("release schema lock: %w", err)
		}
		if !held {
			return fmt.Errorf("schema lock %d was not held by this session", advisoryLockKey)
		}
		return nil
	}
	return release, nil
}
