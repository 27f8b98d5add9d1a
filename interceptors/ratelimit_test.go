package interceptors

import (
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/komoralink/komora/policy"
	"github.com/komoralink/komora/ratelimit"
)

func TestRateLimitUnary_GlobalOnly(t *testing.T) {
	ic := RateLimitUnary(ratelimit.NewLimiter(0.001, 2), nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}

	for i := range 2 {
		if _, err := ic(t.Context(), nil, info, okHandler); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if _, err := ic(t.Context(), nil, info, okHandler); codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestRateLimitUnary_NoLimiter(t *testing.T) {
	ic := RateLimitUnary(nil, nil)
	for range 100 {
		if _, err := ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"}, okHandler); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRateLimitUnary_GroupSharesBucket(t *testing.T) {
	r := policy.NewResolver(
		policy.Group("admin").
			Exact("/komora.cache.v1.Cache/ClearAll", "/komora.cache.v1.Cache/InvalidatePattern").
			Policy(policy.Policy{RateLimit: &policy.RateLimitRule{Rate: 2, Window: time.Minute}}),
	)
	ic := RateLimitUnary(ratelimit.NewLimiter(1000, 1000), r)

	clearAll := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/ClearAll"}
	pattern := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/InvalidatePattern"}

	if _, err := ic(t.Context(), nil, clearAll, okHandler); err != nil {
		t.Fatal(err)
	}
	if _, err := ic(t.Context(), nil, pattern, okHandler); err != nil {
		t.Fatal(err)
	}
	if _, err := ic(t.Context(), nil, clearAll, okHandler); codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("group bucket should be spent, got %v", err)
	}

	// Methods outside the group use the global limiter.
	get := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}
	for range 5 {
		if _, err := ic(t.Context(), nil, get, okHandler); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
}

func TestRateLimitUnary_ExactBeatsPrefixPolicy(t *testing.T) {
	r := policy.NewResolver(
		policy.Group("wide").
			Prefix("/komora.cache.v1.Cache/").
			Policy(policy.Policy{RateLimit: &policy.RateLimitRule{Rate: 100, Window: time.Minute}}),
		policy.Group("narrow").
			Exact("/komora.cache.v1.Cache/ClearAll").
			Policy(policy.Policy{RateLimit: &policy.RateLimitRule{Rate: 1, Window: time.Minute}}),
	)
	ic := RateLimitUnary(nil, r)

	clearAll := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/ClearAll"}
	if _, err := ic(t.Context(), nil, clearAll, okHandler); err != nil {
		t.Fatal(err)
	}
	if _, err := ic(t.Context(), nil, clearAll, okHandler); codeOf(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted from the exact group, got %v", err)
	}

	get := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}
	for range 5 {
		if _, err := ic(t.Context(), nil, get, okHandler); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
}
