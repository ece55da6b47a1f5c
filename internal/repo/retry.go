package repo

import (
	"context"
	"strings"
	"time"
)

const (
	retryAttempts = 3
	retryPause    = 200 * time.Millisecond
)

// withRetry re-runs fn on transient lock contention with a linearly growing
// pause (200ms, 400ms, ...). Anything else, or exhaustion, surfaces the last
// error to the caller.
func (r Repo) withRetry(ctx context.Context, fn func() error) error {
	var last error
	for i := 0; i < retryAttempts; i++ {
		last = fn()
		if last == nil || !isBusy(last) {
			return last
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryPause * time.Duration(i+1)):
		}
	}
	return last
}

// isBusy matches SQLite's lock contention errors (SQLITE_BUSY, SQLITE_LOCKED).
func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
