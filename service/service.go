// Package service exposes a cache over gRPC as komora.cache.v1.Cache.
//
// The service is registered from a hand-written grpc.ServiceDesc, so no
// protobuf code generation is involved. Importing the package installs a
// codec that encodes the request and response structs below as JSON while
// passing genuine protobuf messages through unchanged.
package service

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/cache"
)

// Name is the fully qualified service name.
const Name = "komora.cache.v1.Cache"

// Full method names, as seen by interceptors and policy groups.
const (
	MethodGet               = "/" + Name + "/Get"
	MethodSet               = "/" + Name + "/Set"
	MethodInvalidate        = "/" + Name + "/Invalidate"
	MethodInvalidatePattern = "/" + Name + "/InvalidatePattern"
	MethodClearAll          = "/" + Name + "/ClearAll"
)

// Handler is implemented by a cache service.
type Handler interface {
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
	Set(ctx context.Context, req *SetRequest) (*Empty, error)
	Invalidate(ctx context.Context, req *InvalidateRequest) (*Empty, error)
	InvalidatePattern(ctx context.Context, req *InvalidatePatternRequest) (*Empty, error)
	ClearAll(ctx context.Context, req *ClearAllRequest) (*Empty, error)
}

// ServiceDesc describes komora.cache.v1.Cache.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: Name,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: unary(MethodGet, Handler.Get)},
		{MethodName: "Set", Handler: unary(MethodSet, Handler.Set)},
		{MethodName: "Invalidate", Handler: unary(MethodInvalidate, Handler.Invalidate)},
		{MethodName: "InvalidatePattern", Handler: unary(MethodInvalidatePattern, Handler.InvalidatePattern)},
		{MethodName: "ClearAll", Handler: unary(MethodClearAll, Handler.ClearAll)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "komora/cache/v1/cache.proto",
}

// unary adapts a Handler method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(Handler, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		h := srv.(Handler)
		if interceptor == nil {
			return call(h, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
			return call(h, ctx, r.(*Req))
		})
	}
}

// Register registers h on s.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}

// NewHandler serves c.
func NewHandler(c cache.Cache) Handler {
	return &handler{cache: c}
}

type handler struct {
	cache cache.Cache
}

func requireKey(key string) error {
	if key == "" {
		return status.Error(codes.InvalidArgument, "key must not be empty")
	}
	return nil
}

func (h *handler) Get(ctx context.Context, req *GetRequest) (*GetResponse, error) {
	if err := requireKey(req.Key); err != nil {
		return nil, err
	}
	v, ok := h.cache.Get(ctx, req.Key)
	if !ok {
		return &GetResponse{}, nil
	}
	return &GetResponse{Found: true, Value: v}, nil
}

func (h *handler) Set(ctx context.Context, req *SetRequest) (*Empty, error) {
	if err := requireKey(req.Key); err != nil {
		return nil, err
	}
	if !json.Valid(req.Value) {
		return nil, status.Error(codes.InvalidArgument, "value must be a JSON document")
	}
	h.cache.Set(ctx, req.Key, req.Value, time.Duration(req.TTLMillis)*time.Millisecond)
	return &Empty{}, nil
}

func (h *handler) Invalidate(ctx context.Context, req *InvalidateRequest) (*Empty, error) {
	if err := requireKey(req.Key); err != nil {
		return nil, err
	}
	h.cache.Invalidate(ctx, req.Key)
	return &Empty{}, nil
}

func (h *handler) InvalidatePattern(ctx context.Context, req *InvalidatePatternRequest) (*Empty, error) {
	h.cache.InvalidatePattern(ctx, req.Pattern)
	return &Empty{}, nil
}

func (h *handler) ClearAll(ctx context.Context, _ *ClearAllRequest) (*Empty, error) {
	h.cache.ClearAll(ctx)
	return &Empty{}, nil
}
