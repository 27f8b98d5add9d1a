package interceptors

import (
	"context"
	"slices"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func okHandler(_ context.Context, _ any) (any, error) { return "ok", nil }

func codeOf(err error) codes.Code {
	return status.Code(err)
}

func tag(name string, log *[]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		*log = append(*log, name+":before")
		resp, err := handler(ctx, req)
		*log = append(*log, name+":after")
		return resp, err
	}
}

func TestChainUnary_Order(t *testing.T) {
	var log []string
	chained := ChainUnary([]grpc.UnaryServerInterceptor{tag("A", &log), tag("B", &log), tag("C", &log)})

	resp, err := chained(t.Context(), "req", &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		log = append(log, "handler")
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("got (%v, %v)", resp, err)
	}

	want := []string{"A:before", "B:before", "C:before", "handler", "C:after", "B:after", "A:after"}
	if !slices.Equal(log, want) {
		t.Fatalf("got %v, want %v", log, want)
	}
}

func TestChainUnary_ReusableAcrossCalls(t *testing.T) {
	var log []string
	chained := ChainUnary([]grpc.UnaryServerInterceptor{tag("A", &log), tag("B", &log)})

	for range 2 {
		if _, err := chained(t.Context(), nil, &grpc.UnaryServerInfo{}, okHandler); err != nil {
			t.Fatal(err)
		}
	}
	if len(log) != 8 {
		t.Fatalf("expected 8 entries for two calls, got %v", log)
	}
}

func TestChainUnary_EmptyAndSingle(t *testing.T) {
	if ChainUnary(nil) != nil {
		t.Fatal("ChainUnary(nil) should return nil")
	}

	var log []string
	one := tag("only", &log)
	if _, err := ChainUnary([]grpc.UnaryServerInterceptor{one})(t.Context(), nil, &grpc.UnaryServerInfo{}, okHandler); err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 {
		t.Fatalf("single interceptor was not called: %v", log)
	}
}
