package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds or attempts are exhausted, doubling the
// delay between tries starting from baseDelay. The remote calendar feed
// throttles and drops connections often enough that every call goes through
// here. Returns nil on the first success, the last error otherwise; context
// cancellation during a backoff wait ends the loop early.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay

	var err error
	for left := attempts; left > 0; left-- {
		if err = fn(); err == nil {
			return nil
		}
		if left == 1 {
			break // no sleep after the final attempt
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
