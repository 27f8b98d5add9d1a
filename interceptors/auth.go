package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/policy"
)

var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

// authError keeps status errors from the AuthFunc and maps anything else to
// codes.Unauthenticated.
func authError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return errUnauthenticated
}

// AuthUnary runs fn before the handler of every method whose policy sets
// AuthRequired. With a nil resolver every method is authenticated.
func AuthUnary(fn auth.AuthFunc, r *policy.Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if r != nil {
			if m, ok := r.Resolve(info.FullMethod); !ok || !m.Policy.AuthRequired {
				return handler(ctx, req)
			}
		}

		md, _ := metadata.FromIncomingContext(ctx)
		authed, err := fn(ctx, info.FullMethod, md)
		if err != nil {
			return nil, authError(err)
		}
		return handler(authed, req)
	}
}
