package interceptors

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/komoralink/komora/policy"
	"github.com/komoralink/komora/ratelimit"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// limiters hands out the limiter that governs a method: the group's own
// limiter when its policy has a RateLimit rule, the global one otherwise.
type limiters struct {
	global   *ratelimit.Limiter
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]*ratelimit.Limiter
}

func (l *limiters) forMethod(fullMethod string) *ratelimit.Limiter {
	m, ok := l.resolver.Resolve(fullMethod)
	if !ok || m.Policy.RateLimit == nil {
		return l.global
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.groups[m.Group]
	if !ok {
		rl := m.Policy.RateLimit
		lim = ratelimit.PerWindow(rl.Rate, rl.Window)
		l.groups[m.Group] = lim
	}
	return lim
}

// RateLimitUnary rejects calls with codes.ResourceExhausted once the
// applicable limiter is exhausted. All methods of a group share one bucket.
// A nil global limiter leaves methods without a group rule unlimited.
func RateLimitUnary(global *ratelimit.Limiter, r *policy.Resolver) grpc.UnaryServerInterceptor {
	l := &limiters{global: global, resolver: r, groups: make(map[string]*ratelimit.Limiter)}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if lim := l.forMethod(info.FullMethod); lim != nil && !lim.Allow() {
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}
