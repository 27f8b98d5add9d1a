package contextx

import "testing"

func TestGroupRoundTrip(t *testing.T) {
	ctx := WithGroup(t.Context(), "admin")
	if got := GroupFromContext(ctx); got != "admin" {
		t.Fatalf("got %q, want %q", got, "admin")
	}
	if got := GroupFromContext(t.Context()); got != "" {
		t.Fatalf("empty context: got %q", got)
	}
}
