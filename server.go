// Package komora assembles the komora cache daemon: a gRPC server exposing
// a cache.Store as komora.cache.v1.Cache behind a fixed-order middleware
// chain, plus a Prometheus handler for its metrics.
//
//	store := cache.New(backend, cache.WithRegisterer(reg))
//	srv := komora.NewServer(append(komora.DefaultOptions(),
//		komora.WithStore(store),
//		komora.WithRegistry(reg),
//		komora.WithAuth(auth.BearerToken(tokens)),
//	)...)
//	err := srv.Serve(ctx, lis)
package komora

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/interceptors"
	"github.com/komoralink/komora/internal/core"
	"github.com/komoralink/komora/service"
	"github.com/komoralink/komora/tracing"
)

// Server is a configured gRPC cache server.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	store    *cache.Store
	registry *prometheus.Registry
	log      *zap.Logger
	chain    []string
}

// NewServer builds a Server from opts. The cache service and the standard
// gRPC health service are registered on it.
func NewServer(opts ...Option) *Server {
	cfg := config{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	log := cfg.logger.Named("server")

	reg := cfg.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	registerRuntimeCollectors(reg)

	store := cfg.store
	if store == nil {
		store = cache.New(nil, cache.WithLogger(cfg.logger), cache.WithRegisterer(reg))
	}

	mw := cfg.middlewares(log)
	serverOpts := mw.ServerOptions(interceptors.ChainUnary, cfg.grpcOptions...)

	s := &Server{
		grpc:     grpc.NewServer(serverOpts...),
		health:   health.NewServer(),
		store:    store,
		registry: reg,
		log:      log,
		chain:    mw.Names(),
	}
	service.Register(s.grpc, service.NewHandler(store))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// middlewares places every enabled built-in interceptor at its priority,
// followed by the user's.
func (c *config) middlewares(log *zap.Logger) *core.MiddlewareBuilder {
	mw := &c.user
	if c.recovery {
		mw.Add(PriorityRecovery, "recovery", interceptors.RecoveryUnary(log))
	}
	if c.requestID {
		mw.Add(PriorityRequestID, "request_id", interceptors.RequestIDUnary(log))
	}
	if c.tracing != nil {
		mw.Add(PriorityTracing, "tracing", tracing.UnaryServer(c.tracing))
	}
	if c.accessLog {
		mw.Add(PriorityAccessLog, "access_log", interceptors.AccessLogUnary(log))
	}
	if c.limiter != nil || c.resolver != nil {
		mw.Add(PriorityRateLimit, "rate_limit", interceptors.RateLimitUnary(c.limiter, c.resolver))
	}
	if c.authFn != nil {
		mw.Add(PriorityAuth, "auth", interceptors.AuthUnary(c.authFn, c.resolver))
	}
	if c.resolver != nil {
		mw.Add(PriorityPolicy, "policy", interceptors.PolicyUnary(c.resolver))
	}
	return mw
}

func registerRuntimeCollectors(reg *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		var are prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &are) {
			panic(err)
		}
	}
}

// GRPC returns the underlying server for registering further services.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Store returns the store being served.
func (s *Server) Store() *cache.Store { return s.store }

// Middleware returns the names of the active interceptors in execution
// order.
func (s *Server) Middleware() []string { return s.chain }

// MetricsHandler serves the server's registry in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Serve accepts connections on lis until ctx is done, then stops gracefully
// and returns nil. Any other serve failure is returned.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.grpc.Serve(lis) }()
	s.log.Info("serving", zap.String("addr", lis.Addr().String()), zap.Strings("middleware", s.chain))

	select {
	case err := <-errc:
		s.health.Shutdown()
		return err
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		<-errc
		s.log.Info("stopped")
		return nil
	}
}
