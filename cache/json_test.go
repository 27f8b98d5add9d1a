package cache

import (
	"context"
	"testing"
	"time"
)

type business struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// mapCache is a Cache without load deduplication.
type mapCache map[string][]byte

func (m mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}
func (m mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) { m[key] = val }
func (m mapCache) Invalidate(_ context.Context, key string)                       { delete(m, key) }
func (m mapCache) InvalidatePattern(context.Context, string)                      {}
func (m mapCache) ClearAll(context.Context)                                       { clear(m) }

func TestSetJSONGetJSON(t *testing.T) {
	s := New(nil)
	ctx := t.Context()

	if err := SetJSON(ctx, s, "business_42", business{ID: 42, Name: "Acme"}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	got, ok := GetJSON[business](ctx, s, "business_42")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "Acme" || got.ID != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestGetJSONWrongShapeIsMiss(t *testing.T) {
	s := New(nil)
	ctx := t.Context()

	s.Set(ctx, "k", []byte(`"a string"`), time.Minute)
	if _, ok := GetJSON[business](ctx, s, "k"); ok {
		t.Fatal("payload of the wrong shape must be a miss")
	}
}

func TestGetOrSetJSONReloadsUndecodablePayload(t *testing.T) {
	s := New(nil)
	ctx := t.Context()
	s.Set(ctx, "k", []byte(`[1,2,3]`), time.Minute)

	calls := 0
	got, err := GetOrSetJSON(ctx, s, "k", time.Minute, func(context.Context) (business, error) {
		calls++
		return business{ID: 1, Name: "fresh"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSetJSON: %v", err)
	}
	if got.Name != "fresh" || calls != 1 {
		t.Fatalf("got %+v after %d loads", got, calls)
	}

	again, ok := GetJSON[business](ctx, s, "k")
	if !ok || again.Name != "fresh" {
		t.Fatalf("reloaded value was not stored: %+v", again)
	}
}

func TestGetOrSetWithoutLoadingCache(t *testing.T) {
	c := mapCache{}
	ctx := t.Context()

	calls := 0
	loader := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`1`), nil
	}
	for range 2 {
		if _, err := GetOrSet(ctx, c, "k", time.Minute, loader); err != nil {
			t.Fatalf("GetOrSet: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}
}
