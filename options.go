package komora

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/policy"
	"github.com/komoralink/komora/ratelimit"
	"github.com/komoralink/komora/tracing"
)

// Middleware priorities. The chain runs in ascending priority regardless of
// the order options are passed in.
const (
	PriorityRecovery  = 100
	PriorityRequestID = 200
	PriorityTracing   = 300
	PriorityAccessLog = 400
	PriorityRateLimit = 500
	PriorityAuth      = 600
	PriorityPolicy    = 700
	PriorityUser      = 1000
)

// Option configures a Server.
type Option func(*config)

// WithLogger sets the server logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegistry sets the Prometheus registry served by MetricsHandler. Pass
// the same registry to cache.WithRegisterer so store metrics are exported.
func WithRegistry(r *prometheus.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithStore serves s. Without it the server creates a memory-only store.
func WithStore(s *cache.Store) Option {
	return func(c *config) { c.store = s }
}

// WithRecovery converts handler panics into codes.Internal.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID assigns request IDs and request-scoped loggers.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithAccessLog logs one line per call.
func WithAccessLog() Option {
	return func(c *config) { c.accessLog = true }
}

// WithRateLimitGlobal limits calls not covered by a group rate limit.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) { c.limiter = ratelimit.NewLimiter(rps, burst) }
}

// WithPolicies sets the policy groups. They drive group rate limits, which
// methods WithAuth protects, and per-method timeouts.
func WithPolicies(r *policy.Resolver) Option {
	return func(c *config) { c.resolver = r }
}

// WithAuth authenticates calls with fn: those whose policy requires it, or
// every call when no policies are set.
func WithAuth(fn auth.AuthFunc) Option {
	return func(c *config) { c.authFn = fn }
}

// WithOpenTelemetry traces every call.
func WithOpenTelemetry(cfg tracing.Config) Option {
	return func(c *config) { c.tracing = &cfg }
}

// WithUnaryInterceptor appends i after the built-in middleware.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) { c.user.Add(PriorityUser, "user", i) }
}

// WithGRPCOptions passes extra options to grpc.NewServer.
func WithGRPCOptions(opts ...grpc.ServerOption) Option {
	return func(c *config) { c.grpcOptions = append(c.grpcOptions, opts...) }
}
