package interceptors

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/komoralink/komora/contextx"
)

const maxRequestIDLen = 128

func newRequestID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}

// incomingRequestID returns the caller-supplied request ID, if it is usable.
func incomingRequestID(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(contextx.RequestIDHeader) {
		if v != "" && len(v) <= maxRequestIDLen {
			return v
		}
	}
	return ""
}

// RequestIDUnary assigns every call a request ID, reusing the caller's
// x-request-id when present. The ID is stored in the context, echoed in the
// response header and attached to a request-scoped logger derived from log.
func RequestIDUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := contextx.RequestIDFromContext(ctx)
		if id == "" {
			id = incomingRequestID(ctx)
		}
		if id == "" {
			id = newRequestID()
		}

		ctx = contextx.WithRequestID(ctx, id)
		ctx = contextx.WithLogger(ctx, log.With(zap.String("request_id", id)))
		_ = grpc.SetHeader(ctx, metadata.Pairs(contextx.RequestIDHeader, id))
		return handler(ctx, req)
	}
}
