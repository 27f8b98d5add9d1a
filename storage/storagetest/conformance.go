package storagetest

import (
	"slices"
	"testing"

	"github.com/komoralink/komora/storage"
)

// Run exercises the Backend contract against b. The backend must start
// empty.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := t.Context()

	// Miss.
	if _, ok, err := b.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}

	// Set then Get.
	if err := b.Set(ctx, "cache_a", []byte(`{"n":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := b.Get(ctx, "cache_a")
	if err != nil || !ok {
		t.Fatalf("Get(cache_a) = ok=%v err=%v, want hit", ok, err)
	}
	if string(got) != `{"n":1}` {
		t.Fatalf("Get(cache_a) = %q", got)
	}

	// Overwrite.
	if err := b.Set(ctx, "cache_a", []byte(`{"n":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _, _ = b.Get(ctx, "cache_a")
	if string(got) != `{"n":2}` {
		t.Fatalf("after overwrite got %q", got)
	}

	// ListKeys.
	for _, k := range []string{"cache_b", "cache_c", "other"} {
		if err := b.Set(ctx, k, []byte(`1`)); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	keys, err := b.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	slices.Sort(keys)
	want := []string{"cache_a", "cache_b", "cache_c", "other"}
	if !slices.Equal(keys, want) {
		t.Fatalf("ListKeys = %v, want %v", keys, want)
	}

	// Remove, including a missing key.
	if err := b.Remove(ctx, "cache_a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := b.Remove(ctx, "never-set"); err != nil {
		t.Fatalf("Remove(missing): %v", err)
	}
	if _, ok, _ := b.Get(ctx, "cache_a"); ok {
		t.Fatal("cache_a still present after Remove")
	}

	// RemoveMany.
	if err := b.RemoveMany(ctx, []string{"cache_b", "cache_c", "never-set"}); err != nil {
		t.Fatalf("RemoveMany: %v", err)
	}
	keys, err = b.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !slices.Equal(keys, []string{"other"}) {
		t.Fatalf("ListKeys after RemoveMany = %v, want [other]", keys)
	}

	if err := b.RemoveMany(ctx, nil); err != nil {
		t.Fatalf("RemoveMany(nil): %v", err)
	}
}
