package interceptors

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/contextx"
	"github.com/komoralink/komora/policy"
)

func withToken(ctx context.Context, tok string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", "Bearer "+tok))
}

func tokenAuth() auth.AuthFunc {
	return auth.BearerToken(map[string]contextx.Actor{"s3cret": {Subject: "ops"}})
}

func TestAuthUnary_AllMethodsWithoutResolver(t *testing.T) {
	ic := AuthUnary(tokenAuth(), nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}

	_, err := ic(t.Context(), nil, info, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})
	if codeOf(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	var actor contextx.Actor
	_, err = ic(withToken(t.Context(), "s3cret"), nil, info, func(ctx context.Context, _ any) (any, error) {
		actor, _ = contextx.ActorFromContext(ctx)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if actor.Subject != "ops" {
		t.Fatalf("actor not propagated: %+v", actor)
	}
}

func TestAuthUnary_OnlyWhenPolicyRequires(t *testing.T) {
	ic := AuthUnary(tokenAuth(), policy.CacheDefaults())

	get := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}
	if _, err := ic(t.Context(), nil, get, okHandler); err != nil {
		t.Fatalf("reads must not require auth: %v", err)
	}

	set := &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Set"}
	if _, err := ic(t.Context(), nil, set, okHandler); codeOf(err) != codes.Unauthenticated {
		t.Fatalf("writes must require auth, got %v", err)
	}
	if _, err := ic(withToken(t.Context(), "s3cret"), nil, set, okHandler); err != nil {
		t.Fatalf("authenticated write: %v", err)
	}

	unknown := &grpc.UnaryServerInfo{FullMethod: "/other.Service/Call"}
	if _, err := ic(t.Context(), nil, unknown, okHandler); err != nil {
		t.Fatalf("methods outside every group pass through: %v", err)
	}
}

func TestAuthUnary_ErrorMapping(t *testing.T) {
	plain := func(ctx context.Context, _ string, _ metadata.MD) (context.Context, error) {
		return ctx, errors.New("nope")
	}
	denied := func(ctx context.Context, _ string, _ metadata.MD) (context.Context, error) {
		return ctx, status.Error(codes.PermissionDenied, "read only")
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/M"}

	if _, err := AuthUnary(plain, nil)(t.Context(), nil, info, okHandler); codeOf(err) != codes.Unauthenticated {
		t.Fatalf("plain error: got %v", err)
	}
	if _, err := AuthUnary(denied, nil)(t.Context(), nil, info, okHandler); codeOf(err) != codes.PermissionDenied {
		t.Fatalf("status error should be kept: got %v", err)
	}
}
