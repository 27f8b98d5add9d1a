package contextx

import "testing"

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-7")
	if got := RequestIDFromContext(ctx); got != "req-7" {
		t.Fatalf("got %q, want %q", got, "req-7")
	}
	if got := RequestIDFromContext(t.Context()); got != "" {
		t.Fatalf("empty context: got %q", got)
	}
}
