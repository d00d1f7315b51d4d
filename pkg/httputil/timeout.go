package httputil

import (
	"context"
	"errors"
	"time"

	apierrors "github.com/cyberedpro/cybered/pkg/errors"
)

// DefaultTimeout bounds a single attempt when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// WithTimeout runs fn under a deadline of d and returns its result.
//
// fn receives a context that is cancelled when the deadline elapses; if fn has
// not settled by then, WithTimeout returns immediately with an
// [apierrors.Timeout] failure, even when fn ignores its context. Otherwise fn's
// own result is returned unchanged. The deadline timer is released on every
// exit path.
//
// Cancellation of the parent ctx is reported as ctx.Err(), never as a
// timeout. A non-positive d uses [DefaultTimeout].
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		d = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(tctx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, apierrors.Timeout(d)
		}
		return r.v, r.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, apierrors.Timeout(d)
	}
}
