package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func busyErr() error {
	return sqlite3.Error{Code: sqlite3.ErrBusy}
}

func TestRetryDo_BusyThenSuccess(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, Retryable: IsStorageBusy}

	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return busyErr()
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryDo_NonRetryableSurfacesImmediately(t *testing.T) {
	p := DefaultRetryPolicy()
	fatal := errors.New("constraint violated")

	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, attempts)
}

func TestRetryDo_ExhaustionSurfacesUnderlying(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond, Retryable: IsStorageBusy}

	attempts := 0
	err := p.Do(context.Background(), func() error {
		attempts++
		return busyErr()
	})
	require.Error(t, err)
	require.True(t, IsStorageBusy(err))
	require.Equal(t, 3, attempts)
}

func TestRetryDo_ContextCancelAbortsBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Hour, Retryable: IsStorageBusy}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func() error { return busyErr() })
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsStorageBusy_Classification(t *testing.T) {
	require.True(t, IsStorageBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	require.True(t, IsStorageBusy(sqlite3.Error{Code: sqlite3.ErrLocked}))
	require.True(t, IsStorageBusy(errors.New("database is locked")))
	require.False(t, IsStorageBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	require.False(t, IsStorageBusy(errors.New("no such table")))
	require.False(t, IsStorageBusy(nil))
}
