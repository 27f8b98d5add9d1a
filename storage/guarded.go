package storage

import (
	"context"
	"errors"
	"time"

	"github.com/komoralink/komora/breaker"
	"github.com/komoralink/komora/retry"
)

// ErrCircuitOpen is returned by a Guarded backend while its breaker rejects
// calls.
var ErrCircuitOpen = errors.New("storage: circuit open")

// Guarded wraps a Backend with retries for transient failures and a circuit
// breaker that fails fast once the backend keeps failing. A cache in front
// of a dead backend then degrades to memory only without paying a network
// timeout on every call.
type Guarded struct {
	next  Backend
	br    *breaker.Breaker
	retry retry.Config
}

// GuardOption configures Guard.
type GuardOption func(*Guarded)

// WithBreaker replaces the default breaker configuration. A nil IsFailure
// is filled in so that context errors never count against the breaker.
func WithBreaker(cfg breaker.Config) GuardOption {
	return func(g *Guarded) { g.br = newBreaker(cfg) }
}

func newBreaker(cfg breaker.Config) *breaker.Breaker {
	if cfg.IsFailure == nil {
		cfg.IsFailure = retry.Except()
	}
	return breaker.New(cfg)
}

// WithRetry replaces the default retry configuration. A nil Retryable is
// filled in so that context errors are never retried.
func WithRetry(cfg retry.Config) GuardOption {
	return func(g *Guarded) {
		if cfg.Retryable == nil {
			cfg.Retryable = retry.Except()
		}
		g.retry = cfg
	}
}

// Guard wraps next. By default three attempts are made per call and the
// breaker opens after five consecutive failed calls. Calls abandoned by a
// cancelled or expired context are not failures.
func Guard(next Backend, opts ...GuardOption) *Guarded {
	g := &Guarded{
		next: next,
		br:   newBreaker(breaker.DefaultConfig()),
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   20 * time.Millisecond,
			MaxDelay:    200 * time.Millisecond,
			Jitter:      0.2,
			Retryable:   retry.Except(),
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// State exposes the breaker state.
func (g *Guarded) State() breaker.State {
	return g.br.State()
}

func (g *Guarded) call(ctx context.Context, fn func(context.Context) error) error {
	err := g.br.Execute(func() error {
		return retry.Run(ctx, g.retry, fn)
	})
	if errors.Is(err, breaker.ErrOpen) {
		return ErrCircuitOpen
	}
	return err
}

func (g *Guarded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val []byte
		ok  bool
	)
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		val, ok, err = g.next.Get(ctx, key)
		return err
	})
	return val, ok, err
}

func (g *Guarded) Set(ctx context.Context, key string, val []byte) error {
	return g.call(ctx, func(ctx context.Context) error {
		return g.next.Set(ctx, key, val)
	})
}

func (g *Guarded) Remove(ctx context.Context, key string) error {
	return g.call(ctx, func(ctx context.Context) error {
		return g.next.Remove(ctx, key)
	})
}

func (g *Guarded) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		keys, err = g.next.ListKeys(ctx)
		return err
	})
	return keys, err
}

func (g *Guarded) RemoveMany(ctx context.Context, keys []string) error {
	return g.call(ctx, func(ctx context.Context) error {
		return g.next.RemoveMany(ctx, keys)
	})
}
