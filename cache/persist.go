package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/mo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/komoralink/komora/contextx"
)

// Backend operations as they appear in logs, spans and the failure counter.
const (
	opGet        = "get"
	opSet        = "set"
	opRemove     = "remove"
	opList       = "list"
	opRemoveMany = "remove_many"
	opEncode     = "encode"
	opDecode     = "decode"
)

// opError tags a persistence failure with the operation that produced it.
type opError struct {
	Op  string
	Err error
}

func (e *opError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }
func (e *opError) Unwrap() error { return e.Err }

func failed[T any](op string, err error) mo.Result[T] {
	return mo.Err[T](&opError{Op: op, Err: err})
}

// The helpers below never touch s.memory. Each returns an explicit outcome
// that the calling operation settles with s.settle.

// load reads and decodes the entry for key. None means the backend has no
// such key.
func (s *Store) load(ctx context.Context, key string) mo.Result[mo.Option[Entry]] {
	if s.backend == nil {
		return mo.Ok(mo.None[Entry]())
	}

	var (
		raw   []byte
		found bool
	)
	err := s.traced(ctx, opGet, key, func(ctx context.Context) error {
		var err error
		raw, found, err = s.backend.Get(ctx, s.storageKey(key))
		return err
	})
	if err != nil {
		return failed[mo.Option[Entry]](opGet, err)
	}
	if !found {
		return mo.Ok(mo.None[Entry]())
	}

	e, err := decodeEntry(raw)
	if err != nil {
		return failed[mo.Option[Entry]](opDecode, err)
	}
	return mo.Ok(mo.Some(e))
}

// persist writes e under key and reports how many keys were written.
func (s *Store) persist(ctx context.Context, key string, e Entry) mo.Result[int] {
	if s.backend == nil {
		return mo.Ok(0)
	}
	raw, err := encodeEntry(e)
	if err != nil {
		return failed[int](opEncode, err)
	}
	err = s.traced(ctx, opSet, key, func(ctx context.Context) error {
		return s.backend.Set(ctx, s.storageKey(key), raw)
	})
	if err != nil {
		return failed[int](opSet, err)
	}
	return mo.Ok(1)
}

// remove deletes key from the backend.
func (s *Store) remove(ctx context.Context, key string) mo.Result[int] {
	if s.backend == nil {
		return mo.Ok(0)
	}
	err := s.traced(ctx, opRemove, key, func(ctx context.Context) error {
		return s.backend.Remove(ctx, s.storageKey(key))
	})
	if err != nil {
		return failed[int](opRemove, err)
	}
	return mo.Ok(1)
}

// removeMatching enumerates the backend, keeps the keys carrying the
// namespace that also satisfy match, and removes them in one bulk call.
// match sees the full stored key, namespace included.
func (s *Store) removeMatching(ctx context.Context, label string, match func(string) bool) mo.Result[int] {
	if s.backend == nil {
		return mo.Ok(0)
	}

	var all []string
	err := s.traced(ctx, opList, label, func(ctx context.Context) error {
		var err error
		all, err = s.backend.ListKeys(ctx)
		return err
	})
	if err != nil {
		return failed[int](opList, err)
	}

	var doomed []string
	for _, k := range all {
		if strings.HasPrefix(k, s.namespace) && match(k) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return mo.Ok(0)
	}

	err = s.traced(ctx, opRemoveMany, label, func(ctx context.Context) error {
		return s.backend.RemoveMany(ctx, doomed)
	})
	if err != nil {
		return failed[int](opRemoveMany, err)
	}
	return mo.Ok(len(doomed))
}

// settle is the boundary where persistence outcomes end: failures are
// logged and counted, successes are logged at debug level.
func settle[T any](ctx context.Context, s *Store, subject string, r mo.Result[T]) {
	log := contextx.Logger(ctx, s.log)
	if err := r.Error(); err != nil {
		op := "unknown"
		var oe *opError
		if errors.As(err, &oe) {
			op = oe.Op
		}
		s.metrics.failure(op)
		log.Warn("cache: persistence failed, continuing in memory",
			zap.String("op", op),
			zap.String("key", subject),
			zap.Error(err),
		)
		return
	}
	if ce := log.Check(zap.DebugLevel, "cache: persisted"); ce != nil {
		ce.Write(zap.String("key", subject), zap.Any("result", r.MustGet()))
	}
}

// traced runs fn inside a client span describing one backend call.
func (s *Store) traced(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "cache.backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.op", op),
		attribute.String("cache.key", key),
	)
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
