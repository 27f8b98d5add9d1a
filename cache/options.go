package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// config holds the settings assembled via functional options.
type config struct {
	defaultTTL time.Duration
	namespace  string
	logger     *zap.Logger
	now        func() time.Time
	registerer prometheus.Registerer
	tracerProv trace.TracerProvider
}

// Option configures a Store.
type Option func(*config)

// WithDefaultTTL sets the ttl used when Set receives a non-positive one.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithNamespace sets the prefix under which entries are written to the
// backend. ClearAll only removes backend keys carrying it.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRegisterer registers the store's Prometheus collectors with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) { c.registerer = r }
}

// WithTracerProvider sets the provider for backend call spans. When unset
// the global otel provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProv = tp }
}
