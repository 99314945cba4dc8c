package db

import (
	"fmt"
	"strings"
	"time"
)

const (
	busyMaxAttempts    = 5
	busyInitialBackoff = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a transient SQLITE_BUSY condition
// worth retrying. The driver surfaces these as plain error strings.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs fn, retrying with doubling backoff while the database
// reports busy. Non-busy errors return immediately and unwrapped; once the
// attempt budget is exhausted the last busy error is returned wrapped.
func retryOnBusy(fn func() error) error {
	var err error
	backoff := busyInitialBackoff
	for attempt := 0; attempt < busyMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
	}
	return fmt.Errorf("database busy after %d attempts: %w", busyMaxAttempts, err)
}
