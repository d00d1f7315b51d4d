// Package httputil provides the bounded-time and bounded-retry primitives
// used by the request gateway.
//
// # Overview
//
//   - [WithTimeout]: runs one call under a deadline (the Timeout Guard)
//   - [Retry]: re-issues a failing call with exponential backoff (the Retry Policy)
//
// The gateway composes them as Retry(WithTimeout(transport)): every attempt
// gets its own fresh deadline, and a timed-out attempt is an ordinary
// transient failure from the retry loop's point of view.
//
// # Timeout
//
// [WithTimeout] cancels the context it hands to the call when the deadline
// elapses and reports an errors.ErrCodeTimeout failure. It returns at the
// deadline even if the call ignores its context, so a hung transport cannot
// hold the caller past the configured bound:
//
//	resp, err := httputil.WithTimeout(ctx, 10*time.Second, func(ctx context.Context) (*Response, error) {
//	    return send(ctx, req)
//	})
//
// # Retry
//
// [Retry] only re-issues failures accepted by [Policy.Retryable], which
// defaults to errors.IsTransient:
//
//   - Network errors (no response received)
//   - Timeouts
//   - 5xx server errors
//
// Any response with a status below 500 is terminal and returned after a
// single attempt. Between attempt i and i+1 Retry waits Delay*2^i:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy(), func(attempt int) error {
//	    return call(ctx)
//	})
//
// # Configuration
//
// Default settings:
//
//   - Timeout per attempt: 10 seconds
//   - Max attempts: 3
//   - Base backoff: 1 second (1s, 2s, 4s, ...)
package httputil
