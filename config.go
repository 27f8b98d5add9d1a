package komora

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/internal/core"
	"github.com/komoralink/komora/policy"
	"github.com/komoralink/komora/ratelimit"
	"github.com/komoralink/komora/tracing"
)

// config is assembled by Options.
type config struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	store    *cache.Store

	recovery  bool
	requestID bool
	accessLog bool
	limiter   *ratelimit.Limiter
	resolver  *policy.Resolver
	authFn    auth.AuthFunc
	tracing   *tracing.Config

	user        core.MiddlewareBuilder
	grpcOptions []grpc.ServerOption
}
