package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// serveConfig is read from the environment by the serve command.
type serveConfig struct {
	Listen        string `env:"KOMORA_LISTEN"         envDefault:":7070"`
	MetricsListen string `env:"KOMORA_METRICS_LISTEN" envDefault:":9090"`

	Backend  string `env:"KOMORA_BACKEND"   envDefault:"bolt"`
	BoltPath string `env:"KOMORA_BOLT_PATH" envDefault:"komora.db"`

	RedisAddr     string `env:"KOMORA_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"KOMORA_REDIS_PASSWORD"`
	RedisDB       int    `env:"KOMORA_REDIS_DB"`

	MinIOEndpoint  string `env:"KOMORA_MINIO_ENDPOINT"`
	MinIOBucket    string `env:"KOMORA_MINIO_BUCKET"     envDefault:"komora"`
	MinIOAccessKey string `env:"KOMORA_MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"KOMORA_MINIO_SECRET_KEY"`
	MinIOSSL       bool   `env:"KOMORA_MINIO_SSL"`

	Namespace  string        `env:"KOMORA_NAMESPACE"   envDefault:"cache_"`
	DefaultTTL time.Duration `env:"KOMORA_DEFAULT_TTL" envDefault:"5m"`

	AuthToken string  `env:"KOMORA_AUTH_TOKEN"`
	RateRPS   float64 `env:"KOMORA_RATE_RPS"`
	RateBurst int     `env:"KOMORA_RATE_BURST" envDefault:"100"`

	TraceStdout bool   `env:"KOMORA_TRACE_STDOUT"`
	LogLevel    string `env:"KOMORA_LOG_LEVEL" envDefault:"info"`
}

const (
	backendMemory = "memory"
	backendBolt   = "bolt"
	backendRedis  = "redis"
	backendMinIO  = "minio"
)

// loadConfig parses environ, or the process environment when environ is nil.
func loadConfig(environ map[string]string) (serveConfig, error) {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	cfg, err := env.ParseAsWithOptions[serveConfig](opts)
	if err != nil {
		return serveConfig{}, fmt.Errorf("config: %w", err)
	}
	switch cfg.Backend {
	case backendMemory, backendBolt, backendRedis, backendMinIO:
	default:
		return serveConfig{}, fmt.Errorf("config: unknown KOMORA_BACKEND %q", cfg.Backend)
	}
	if cfg.DefaultTTL <= 0 {
		return serveConfig{}, fmt.Errorf("config: KOMORA_DEFAULT_TTL must be positive, got %s", cfg.DefaultTTL)
	}
	return cfg, nil
}

// newLogger builds a JSON production logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("config: KOMORA_LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
