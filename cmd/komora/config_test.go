package main

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(map[string]string{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Listen != ":7070" || cfg.MetricsListen != ":9090" {
		t.Fatalf("listen = %q, %q", cfg.Listen, cfg.MetricsListen)
	}
	if cfg.Backend != backendBolt || cfg.BoltPath != "komora.db" {
		t.Fatalf("backend = %q at %q", cfg.Backend, cfg.BoltPath)
	}
	if cfg.Namespace != "cache_" || cfg.DefaultTTL != 5*time.Minute {
		t.Fatalf("namespace %q ttl %s", cfg.Namespace, cfg.DefaultTTL)
	}
	if cfg.RateRPS != 0 || cfg.RateBurst != 100 {
		t.Fatalf("rate %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(map[string]string{
		"KOMORA_BACKEND":     "redis",
		"KOMORA_REDIS_ADDR":  "cache:6380",
		"KOMORA_REDIS_DB":    "3",
		"KOMORA_DEFAULT_TTL": "90s",
		"KOMORA_RATE_RPS":    "12.5",
		"KOMORA_AUTH_TOKEN":  "t0k",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != backendRedis || cfg.RedisAddr != "cache:6380" || cfg.RedisDB != 3 {
		t.Fatalf("redis config = %+v", cfg)
	}
	if cfg.DefaultTTL != 90*time.Second || cfg.RateRPS != 12.5 || cfg.AuthToken != "t0k" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"backend": {"KOMORA_BACKEND": "etcd"},
		"ttl":     {"KOMORA_DEFAULT_TTL": "0s"},
		"syntax":  {"KOMORA_REDIS_DB": "three"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(environ)
			if err == nil || !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("debug: %v", err)
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}
