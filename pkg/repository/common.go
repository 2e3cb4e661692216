package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
)

// maxInParams limits ids in one IN (...) clause, well below sqlite variable limits
const maxInParams = 500

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

func (e *criticalError) Unwrap() error {
	return e.err
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}

// withRetry runs fn with backoff while it fails with sqlite lock errors
func withRetry(ctx context.Context, name string, fn func() error) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	var lastErr error
	err := retrier.Do(ctx, func() error {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isLockError(lastErr) {
			return lastErr // retry
		}
		return &criticalError{err: lastErr}
	})
	if err == nil {
		return nil
	}
	if ce := (&criticalError{}); errors.As(err, &ce) {
		return fmt.Errorf("%s: %w", name, ce.err)
	}
	if lastErr != nil {
		return fmt.Errorf("%s: %w", name, lastErr)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// inTransaction runs fn in a transaction, retried as a whole on lock errors
func inTransaction(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) error {
	return withRetry(ctx, name, func() error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// chunkIDs splits ids into slices not larger than maxInParams
func chunkIDs(ids []string) [][]string {
	var res [][]string
	for len(ids) > 0 {
		n := min(len(ids), maxInParams)
		res = append(res, ids[:n])
		ids = ids[n:]
	}
	return res
}

// stringList is a JSON array of strings for SQL operations
type stringList []string

// Value implements driver.Valuer for database storage
func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (l *stringList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unexpected type %T for string list", value)
	}
	var res []string
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	if len(res) == 0 {
		res = nil
	}
	*l = res
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
