package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// RetryPolicy wraps a unit of work in bounded retry-with-backoff for
// transient storage contention. The wrapped work must be idempotent (the
// executor's conditional updates are), so re-running after a partial failure
// can only yield ErrPreconditionFailed, never a double apply.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff is multiplied by the attempt number: attempt 1 waits Backoff,
	// attempt 2 waits 2×Backoff, and so on.
	Backoff   time.Duration
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the storage layer: three attempts, 100ms × n
// backoff, retrying only on SQLite busy/locked.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     100 * time.Millisecond,
		Retryable:   IsStorageBusy,
	}
}

// Do runs op, retrying per the policy. Non-retryable errors surface
// immediately; exhaustion surfaces the last underlying error.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}
	return err
}

// IsStorageBusy reports whether err is SQLite writer contention, the only
// class of storage error worth retrying.
func IsStorageBusy(err error) bool {
	if err == nil {
		return false
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	// Drivers sometimes wrap without preserving the typed error.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
