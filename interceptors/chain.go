// Package interceptors holds the unary server interceptors the komora
// server chains in front of the cache service.
package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// ChainUnary composes interceptors into one. The first interceptor is the
// outermost: it sees the call first and the response last. Chaining nothing
// returns nil.
func ChainUnary(interceptors []grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var step func(i int) grpc.UnaryHandler
		step = func(i int) grpc.UnaryHandler {
			if i == len(interceptors) {
				return handler
			}
			return func(ctx context.Context, req any) (any, error) {
				return interceptors[i](ctx, req, info, step(i+1))
			}
		}
		return step(0)(ctx, req)
	}
}
