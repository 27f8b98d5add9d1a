package interceptors

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/contextx"
)

var errInternal = status.Error(codes.Internal, "internal server error")

// RecoveryUnary turns a panicking handler into a codes.Internal error and
// logs the panic value with a stack trace.
func RecoveryUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				contextx.Logger(ctx, log).Error("grpc: handler panicked",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				resp, err = nil, errInternal
			}
		}()
		return handler(ctx, req)
	}
}
