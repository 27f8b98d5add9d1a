package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/komoralink/komora/breaker"
	"github.com/komoralink/komora/retry"
	"github.com/komoralink/komora/storage"
	"github.com/komoralink/komora/storage/storagetest"
)

func fastRetry(attempts int) storage.GuardOption {
	return storage.WithRetry(retry.Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	})
}

func TestGuardedConformance(t *testing.T) {
	storagetest.Run(t, storage.Guard(storage.NewMemory()))
}

func TestGuardedRetriesTransientFailure(t *testing.T) {
	spy := storagetest.NewSpy()
	g := storage.Guard(spy, fastRetry(3))

	spy.Fail(storagetest.OpSet)
	err := g.Set(t.Context(), "k", []byte("v"))
	if !errors.Is(err, storagetest.ErrInjected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if n := spy.Calls(storagetest.OpSet); n != 3 {
		t.Fatalf("Set called %d times, want 3", n)
	}
}

func TestGuardedOpensCircuit(t *testing.T) {
	spy := storagetest.NewSpy()
	g := storage.Guard(spy,
		fastRetry(1),
		storage.WithBreaker(breaker.Config{FailureThreshold: 2, OpenTimeout: time.Hour}),
	)
	ctx := t.Context()

	spy.Fail()
	for range 2 {
		if _, _, err := g.Get(ctx, "k"); !errors.Is(err, storagetest.ErrInjected) {
			t.Fatalf("expected injected error, got %v", err)
		}
	}
	if s := g.State(); s != breaker.Open {
		t.Fatalf("expected open breaker, got %s", s)
	}

	spy.Reset()
	spy.Heal()
	if _, err := g.ListKeys(ctx); !errors.Is(err, storage.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if n := spy.TotalCalls(); n != 0 {
		t.Fatalf("open circuit must not reach the backend, saw %d calls", n)
	}
}

// ctxAware fails reads the way a network backend does once ctx is done.
type ctxAware struct{ storage.Backend }

func (c ctxAware) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return c.Backend.Get(ctx, key)
}

func TestGuardedIgnoresContextErrors(t *testing.T) {
	cases := map[string][]storage.GuardOption{
		"default":      nil,
		"with breaker": {storage.WithBreaker(breaker.DefaultConfig())},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			g := storage.Guard(ctxAware{storage.NewMemory()}, opts...)

			cancelled, cancel := context.WithCancel(t.Context())
			cancel()
			expired, stop := context.WithTimeout(t.Context(), -time.Second)
			defer stop()

			for range 5 {
				if _, _, err := g.Get(cancelled, "k"); !errors.Is(err, context.Canceled) {
					t.Fatalf("expected context.Canceled, got %v", err)
				}
				if _, _, err := g.Get(expired, "k"); !errors.Is(err, context.DeadlineExceeded) {
					t.Fatalf("expected context.DeadlineExceeded, got %v", err)
				}
			}
			if s := g.State(); s != breaker.Closed {
				t.Fatalf("context errors opened the breaker: %s", s)
			}
			if _, _, err := g.Get(t.Context(), "k"); err != nil {
				t.Fatalf("healthy call after abandoned ones: %v", err)
			}
		})
	}
}
