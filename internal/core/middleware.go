// Package core assembles the interceptor chain of a komora server.
package core

import (
	"cmp"
	"slices"

	"google.golang.org/grpc"
)

type middleware struct {
	name  string
	unary grpc.UnaryServerInterceptor
	order int
}

// MiddlewareBuilder collects interceptors with an execution order. Lower
// orders run first (outermost); equal orders keep registration order.
type MiddlewareBuilder struct {
	entries []middleware
}

// Add registers unary under name at order. A nil interceptor is ignored.
func (b *MiddlewareBuilder) Add(order int, name string, unary grpc.UnaryServerInterceptor) {
	if unary == nil {
		return
	}
	b.entries = append(b.entries, middleware{name: name, unary: unary, order: order})
}

// Names returns the registered middleware names in execution order.
func (b *MiddlewareBuilder) Names() []string {
	sorted := b.sorted()
	names := make([]string, len(sorted))
	for i, m := range sorted {
		names[i] = m.name
	}
	return names
}

// Build returns the interceptors in execution order.
func (b *MiddlewareBuilder) Build() []grpc.UnaryServerInterceptor {
	sorted := b.sorted()
	out := make([]grpc.UnaryServerInterceptor, len(sorted))
	for i, m := range sorted {
		out[i] = m.unary
	}
	return out
}

// ServerOptions folds the interceptors into one with chain and returns it as
// a server option ahead of extra. Nothing registered means no interceptor
// option at all.
func (b *MiddlewareBuilder) ServerOptions(chain func([]grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor, extra ...grpc.ServerOption) []grpc.ServerOption {
	if len(b.entries) == 0 {
		return extra
	}
	return append([]grpc.ServerOption{grpc.UnaryInterceptor(chain(b.Build()))}, extra...)
}

func (b *MiddlewareBuilder) sorted() []middleware {
	s := slices.Clone(b.entries)
	slices.SortStableFunc(s, func(a, c middleware) int { return cmp.Compare(a.order, c.order) })
	return s
}
