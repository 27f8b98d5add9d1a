package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/contextx"
)

// AccessLogUnary logs one line per call with its method, status code and
// duration. Server-side failures are logged at error level, rejected calls
// at warn and the rest at info.
func AccessLogUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		l := contextx.Logger(ctx, log)
		if ce := l.Check(levelFor(code), "grpc: call"); ce != nil {
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			ce.Write(fields...)
		}
		return resp, err
	}
}

func levelFor(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		return zap.InfoLevel
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unimplemented:
		return zap.ErrorLevel
	default:
		return zap.WarnLevel
	}
}
