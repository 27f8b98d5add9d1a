package cache

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/komoralink/komora/contextx"
	"github.com/komoralink/komora/storage"
)

// Store is the TTL cache. The zero value is not usable; create one with New.
// All methods are safe for concurrent use.
type Store struct {
	backend    storage.Backend
	namespace  string
	defaultTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics
	tracer     trace.Tracer

	mu     sync.RWMutex
	memory map[string]Entry

	loads singleflight.Group
}

var _ Cache = (*Store)(nil)

// New creates a Store mirroring its entries into backend. A nil backend
// gives a memory-only store.
func New(backend storage.Backend, opts ...Option) *Store {
	cfg := config{
		defaultTTL: DefaultTTL,
		namespace:  DefaultNamespace,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(&cfg)
	}

	tp := cfg.tracerProv
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	s := &Store{
		backend:    backend,
		namespace:  cfg.namespace,
		defaultTTL: cfg.defaultTTL,
		now:        cfg.now,
		log:        cfg.logger.Named("cache"),
		tracer:     tp.Tracer("github.com/komoralink/komora/cache"),
		memory:     make(map[string]Entry),
	}
	s.metrics = newMetrics(cfg.registerer, func() float64 { return float64(s.Len()) })
	return s
}

// storageKey maps a cache key to its backend key.
func (s *Store) storageKey(key string) string {
	return s.namespace + key
}

// Set stores val under key for ttl, replacing any previous entry. The
// memory write always succeeds; the backend write is best effort. Empty
// keys are ignored.
func (s *Store) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if key == "" {
		contextx.Logger(ctx, s.log).Warn("cache: set with empty key ignored")
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	e := newEntry(val, s.now(), ttl)

	s.mu.Lock()
	s.memory[key] = e
	s.mu.Unlock()

	settle(ctx, s, key, s.persist(ctx, key, e))
}

// Get returns the value for key if a valid entry exists in memory or, failing
// that, in the backend. A backend hit is promoted into memory. Expired
// entries are reported as misses but left in place.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	now := s.now()

	if v, ok := s.fromMemory(key, now); ok {
		s.metrics.lookup(resultMemoryHit)
		return v, true
	}

	res := s.load(ctx, key)
	if res.IsError() {
		settle(ctx, s, key, res)
		s.metrics.lookup(resultMiss)
		return nil, false
	}

	e, found := res.MustGet().Get()
	if !found || !e.Valid(now) {
		s.metrics.lookup(resultMiss)
		return nil, false
	}

	s.promote(key, e)
	s.metrics.lookup(resultPersistentHit)
	return bytes.Clone(e.Value), true
}

// fromMemory returns a copy of key's value when memory holds a valid entry.
func (s *Store) fromMemory(key string, now time.Time) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.memory[key]
	s.mu.RUnlock()
	if !ok || !e.Valid(now) {
		return nil, false
	}
	return bytes.Clone(e.Value), true
}

// promote copies a backend entry into memory unless a newer write landed
// there while the backend was being read.
func (s *Store) promote(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.memory[key]; ok && cur.WrittenAt > e.WrittenAt {
		return
	}
	s.memory[key] = e
}

// Invalidate removes key from memory and from the backend.
func (s *Store) Invalidate(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	s.metrics.invalidation("key")
	settle(ctx, s, key, s.remove(ctx, key))
}

// InvalidatePattern removes every memory key that contains pattern as a
// plain substring, and every namespaced backend key whose stored form
// contains it.
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) {
	match := func(k string) bool { return strings.Contains(k, pattern) }

	s.mu.Lock()
	for k := range s.memory {
		if match(k) {
			delete(s.memory, k)
		}
	}
	s.mu.Unlock()

	s.metrics.invalidation("pattern")
	settle(ctx, s, pattern, s.removeMatching(ctx, pattern, match))
}

// ClearAll empties memory and removes every namespaced key from the
// backend. Keys outside the namespace are left alone.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.memory = make(map[string]Entry)
	s.mu.Unlock()

	s.metrics.invalidation("all")
	settle(ctx, s, s.namespace+"*", s.removeMatching(ctx, s.namespace+"*", func(string) bool { return true }))
}

// GetOrSet returns the cached value for key. On a miss it calls loader once
// per key across concurrent callers, stores the result for ttl and returns
// it. Only loader errors are returned.
func (s *Store) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		// A caller that shared this flight may have filled memory already.
		if v, ok := s.fromMemory(key, s.now()); ok {
			return v, nil
		}
		val, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, val, ttl)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.([]byte)), nil
}

// Peek returns the raw entry held in memory for key, valid or not. It never
// consults the backend.
func (s *Store) Peek(key string) mo.Option[Entry] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.memory[key]; ok {
		return mo.Some(e)
	}
	return mo.None[Entry]()
}

// Len returns the number of entries in memory, including expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}
