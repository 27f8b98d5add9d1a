package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/komoralink/komora"
	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/breaker"
	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/contextx"
	"github.com/komoralink/komora/storage"
	"github.com/komoralink/komora/tracing"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cache daemon (configured through KOMORA_* variables)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// openBackend returns the configured backend and a closer for it. Remote
// backends are guarded so an outage degrades the store to memory only.
func openBackend(ctx context.Context, cfg serveConfig, log *zap.Logger) (storage.Backend, io.Closer, error) {
	nop := closerFunc(func() error { return nil })
	guard := func(b storage.Backend) storage.Backend {
		bc := breaker.DefaultConfig()
		bc.OnStateChange = func(from, to breaker.State) {
			log.Warn("storage: breaker state changed",
				zap.String("backend", cfg.Backend),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		return storage.Guard(b, storage.WithBreaker(bc))
	}

	switch cfg.Backend {
	case backendMemory:
		return storage.NewMemory(), nop, nil
	case backendBolt:
		b, err := storage.OpenBolt(cfg.BoltPath, storage.BoltOptions{})
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case backendRedis:
		r := storage.NewRedis(storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := r.Ping(ctx); err != nil {
			log.Warn("storage: redis unreachable at startup, continuing", zap.Error(err))
		}
		return guard(r), r, nil
	case backendMinIO:
		m, err := storage.NewMinIO(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return guard(m), nop, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func serve(ctx context.Context, cfg serveConfig, log *zap.Logger) error {
	backend, closer, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	tp := sdktrace.NewTracerProvider()
	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	reg := prometheus.NewRegistry()
	store := cache.New(backend,
		cache.WithNamespace(cfg.Namespace),
		cache.WithDefaultTTL(cfg.DefaultTTL),
		cache.WithLogger(log),
		cache.WithRegisterer(reg),
		cache.WithTracerProvider(tp),
	)

	opts := append(komora.DefaultOptions(),
		komora.WithLogger(log),
		komora.WithRegistry(reg),
		komora.WithStore(store),
		komora.WithOpenTelemetry(tracing.Config{TracerProvider: tp}),
	)
	if cfg.AuthToken != "" {
		opts = append(opts, komora.WithAuth(auth.BearerToken(map[string]contextx.Actor{
			cfg.AuthToken: {Subject: "operator"},
		})))
	} else {
		log.Warn("KOMORA_AUTH_TOKEN is empty, writes are rejected")
		opts = append(opts, komora.WithAuth(auth.BearerToken(nil)))
	}
	if cfg.RateRPS > 0 {
		opts = append(opts, komora.WithRateLimitGlobal(cfg.RateRPS, cfg.RateBurst))
	}
	srv := komora.NewServer(opts...)

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", srv.MetricsHandler())
	metrics := &http.Server{Addr: cfg.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, lis) })
	g.Go(func() error {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsListen))
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metrics.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
