package interceptors

import (
	"context"

	"google.golang.org/grpc"

	"github.com/komoralink/komora/contextx"
	"github.com/komoralink/komora/policy"
)

// PolicyUnary records the method's policy group in the context and bounds
// the handler by the group's Timeout. A caller deadline that is already
// shorter is kept.
func PolicyUnary(r *policy.Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		m, ok := r.Resolve(info.FullMethod)
		if !ok {
			return handler(ctx, req)
		}

		ctx = contextx.WithGroup(ctx, m.Group)
		if m.Policy.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.Policy.Timeout)
			defer cancel()
		}
		return handler(ctx, req)
	}
}
