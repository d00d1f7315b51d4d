package httputil

import (
	"context"
	"time"

	apierrors "github.com/cyberedpro/cybered/pkg/errors"
)

// Default retry settings.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy controls how [Retry] re-issues a failing operation.
type Policy struct {
	// Attempts is the maximum number of calls, including the first. Values
	// below 1 are treated as 1.
	Attempts int

	// Delay is the wait after the first failed attempt. It doubles after
	// each subsequent failure: Delay, 2*Delay, 4*Delay, ...
	Delay time.Duration

	// Retryable decides whether a failure is eligible for another attempt.
	// Nil means [apierrors.IsTransient].
	Retryable func(error) bool

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts with a 1 second initial delay.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Retry executes fn up to p.Attempts times with exponential backoff.
//
// fn receives the 0-indexed attempt number. Errors that p.Retryable rejects
// are returned immediately. After attempt i fails, Retry waits Delay*2^i
// before attempt i+1; there is no wait after the final attempt. Returns the
// last error if all attempts fail, or ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = apierrors.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := p.Delay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(i); err == nil {
			return nil
		} else if lastErr = err; !retryable(err) {
			return err
		}

		if i < attempts-1 {
			if p.OnRetry != nil {
				p.OnRetry(i, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
