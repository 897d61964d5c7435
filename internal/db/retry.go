package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// txMaxAttempts bounds how often a conflicting transaction is retried.
	txMaxAttempts = 5
	// txRetryBackoff is the base delay between retry attempts.
	txRetryBackoff = 10 * time.Millisecond
)

// RunInTx executes fn inside a database transaction, retrying the whole
// transaction a bounded number of times when the store reports a
// transient conflict (SQLite busy locks, PostgreSQL serialization or
// deadlock failures). Non-transient errors are returned as-is on the
// first attempt.
func RunInTx(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(txRetryBackoff << (attempt - 1)):
			}
		}
		err = conn.WithContext(ctx).Transaction(fn)
		if err == nil || !retryableTxError(err) {
			return err
		}
	}
	return err
}

// retryableTxError reports whether the error is a transient store
// conflict worth retrying.
func retryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "deadlock detected"),
		strings.Contains(msg, "could not serialize access"):
		return true
	}
	return false
}
