// Package retry provides a generic retry helper with exponential backoff and
// jitter. It wraps persistence backends, the gRPC cache client and the
// catalog HTTP client; which errors are worth another attempt is decided by
// the caller through [Config.Retryable].
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including the
	// first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Subsequent retries use
	// exponential back-off: BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64

	// Retryable reports whether err is worth another attempt. Nil means no
	// error is retried.
	Retryable func(error) bool
}

// delay is the pause after the failed attempt with index n: BaseDelay
// doubled n times, capped at MaxDelay, then spread by Jitter.
func (c Config) delay(n int) time.Duration {
	d := c.BaseDelay << n
	if d < c.BaseDelay || (c.MaxDelay > 0 && d > c.MaxDelay) {
		d = c.MaxDelay
	}
	if c.Jitter > 0 {
		d += time.Duration(float64(d) * c.Jitter * (rand.Float64()*2 - 1))
	}
	return max(d, 0)
}

// Do calls fn up to cfg.MaxAttempts times, retrying only when
// cfg.Retryable accepts the returned error. Between attempts an exponential
// back-off delay (with optional jitter) is applied.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if i == attempts-1 || cfg.Retryable == nil || !cfg.Retryable(err) {
			return zero, err
		}

		timer := time.NewTimer(cfg.delay(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, nil
}

// Run is [Do] for functions that only return an error.
func Run(ctx context.Context, cfg Config, fn func(context.Context) error) error {
	_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Codes returns a Retryable predicate accepting gRPC status errors whose
// code is listed.
func Codes(list ...codes.Code) func(error) bool {
	return func(err error) bool {
		st, ok := status.FromError(err)
		return ok && slices.Contains(list, st.Code())
	}
}

// Except returns a Retryable predicate accepting every error except those
// matching one of the given sentinels, and never retrying context errors.
func Except(sentinels ...error) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		for _, s := range sentinels {
			if errors.Is(err, s) {
				return false
			}
		}
		return true
	}
}
