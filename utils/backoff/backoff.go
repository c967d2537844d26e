package backoff

import (
	"context"
	"time"

	"github.com/datazip-inc/oratest/utils/logger"
)

// Retry executes f up to attempts times with exponential backoff starting at sleep.
// It returns nil on the first successful attempt, or the last error if all attempts fail.
// The shouldRetry predicate decides whether a given error is retryable; if it returns false,
// Retry stops immediately and returns that error.
func Retry(attempts int, sleep time.Duration, f func() error, shouldRetry func(error) bool) error {
	return RetryContext(context.Background(), attempts, sleep, func(context.Context) error { return f() }, shouldRetry)
}

// RetryContext is Retry that stops waiting once ctx is done and returns the last error seen.
func RetryContext(ctx context.Context, attempts int, sleep time.Duration, f func(context.Context) error, shouldRetry func(error) bool) error {
	if attempts < 1 {
		attempts = 1
	}
	if sleep <= 0 {
		sleep = time.Second
	}
	var lastErr error
	for cur := 0; cur < attempts; cur++ {
		err := f(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if cur == attempts-1 {
			break
		}
		logger.Infof("retry attempt[%d], retrying after %.2f seconds due to err: %s", cur+1, sleep.Seconds(), err)
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(sleep):
		}
		sleep *= 2
	}
	return lastErr
}
