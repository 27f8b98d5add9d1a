package interceptors

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAccessLogUnary(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
		want  string
	}{
		{"ok", nil, zap.InfoLevel, "OK"},
		{"rejected", status.Error(codes.InvalidArgument, "empty key"), zap.WarnLevel, "InvalidArgument"},
		{"failed", status.Error(codes.Internal, "boom"), zap.ErrorLevel, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			ic := AccessLogUnary(zap.New(core))

			_, _ = ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/komora.cache.v1.Cache/Get"}, func(context.Context, any) (any, error) {
				return nil, tt.err
			})

			if logs.Len() != 1 {
				t.Fatalf("expected one access log line, got %d", logs.Len())
			}
			e := logs.All()[0]
			if e.Level != tt.level {
				t.Fatalf("level = %v, want %v", e.Level, tt.level)
			}
			if e.ContextMap()["code"] != tt.want {
				t.Fatalf("code = %v, want %v", e.ContextMap()["code"], tt.want)
			}
			if e.ContextMap()["method"] != "/komora.cache.v1.Cache/Get" {
				t.Fatalf("method = %v", e.ContextMap()["method"])
			}
		})
	}
}
