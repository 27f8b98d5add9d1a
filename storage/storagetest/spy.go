// Package storagetest provides storage backends for tests: a Spy that counts
// calls per operation and can be told to fail, and a conformance suite every
// Backend implementation is expected to pass.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/komoralink/komora/storage"
)

// ErrInjected is returned by a Spy operation that was told to fail.
var ErrInjected = errors.New("storagetest: injected failure")

// Op names a Backend operation.
type Op string

const (
	OpGet        Op = "get"
	OpSet        Op = "set"
	OpRemove     Op = "remove"
	OpListKeys   Op = "list_keys"
	OpRemoveMany Op = "remove_many"
)

// Spy wraps a Backend (a fresh storage.Memory by default), records how many
// times each operation was called and fails operations on demand.
type Spy struct {
	storage.Backend

	mu    sync.Mutex
	calls map[Op]int
	fail  map[Op]error
}

// NewSpy returns a Spy over an empty in-memory backend.
func NewSpy() *Spy {
	return Wrap(storage.NewMemory())
}

// Wrap returns a Spy over b.
func Wrap(b storage.Backend) *Spy {
	return &Spy{
		Backend: b,
		calls:   make(map[Op]int),
		fail:    make(map[Op]error),
	}
}

// Fail makes every subsequent call of the given operations return
// ErrInjected. Called without arguments it fails every operation.
func (s *Spy) Fail(ops ...Op) {
	if len(ops) == 0 {
		ops = []Op{OpGet, OpSet, OpRemove, OpListKeys, OpRemoveMany}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		s.fail[op] = ErrInjected
	}
}

// Heal clears all injected failures.
func (s *Spy) Heal() {
	s.mu.Lock()
	clear(s.fail)
	s.mu.Unlock()
}

// Calls returns how many times op was called.
func (s *Spy) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (s *Spy) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Reset zeroes the call counters.
func (s *Spy) Reset() {
	s.mu.Lock()
	clear(s.calls)
	s.mu.Unlock()
}

func (s *Spy) record(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *Spy) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.record(OpGet); err != nil {
		return nil, false, err
	}
	return s.Backend.Get(ctx, key)
}

func (s *Spy) Set(ctx context.Context, key string, val []byte) error {
	if err := s.record(OpSet); err != nil {
		return err
	}
	return s.Backend.Set(ctx, key, val)
}

func (s *Spy) Remove(ctx context.Context, key string) error {
	if err := s.record(OpRemove); err != nil {
		return err
	}
	return s.Backend.Remove(ctx, key)
}

func (s *Spy) ListKeys(ctx context.Context) ([]string, error) {
	if err := s.record(OpListKeys); err != nil {
		return nil, err
	}
	return s.Backend.ListKeys(ctx)
}

func (s *Spy) RemoveMany(ctx context.Context, keys []string) error {
	if err := s.record(OpRemoveMany); err != nil {
		return err
	}
	return s.Backend.RemoveMany(ctx, keys)
}
