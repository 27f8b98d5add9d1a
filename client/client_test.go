package client_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/client"
	"github.com/komoralink/komora/contextx"
	"github.com/komoralink/komora/interceptors"
	"github.com/komoralink/komora/policy"
	"github.com/komoralink/komora/retry"
	"github.com/komoralink/komora/service"
)

func serve(t *testing.T, h service.Handler, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	service.Register(s, h)
	t.Cleanup(s.Stop)
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func authed() grpc.ServerOption {
	fn := auth.BearerToken(map[string]contextx.Actor{"s3cret": {Subject: "ops"}})
	return grpc.UnaryInterceptor(interceptors.AuthUnary(fn, policy.CacheDefaults()))
}

func TestClient_RoundTrip(t *testing.T) {
	conn := serve(t, service.NewHandler(cache.New(nil)), authed())
	c := client.New(conn, client.WithToken("s3cret"))
	ctx := t.Context()

	if err := c.Set(ctx, "categories", []byte(`["food"]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := c.Get(ctx, "categories")
	if err != nil || !ok || string(v) != `["food"]` {
		t.Fatalf("Get = (%s, %v, %v)", v, ok, err)
	}

	if err := c.InvalidatePattern(ctx, "categ"); err != nil {
		t.Fatalf("InvalidatePattern: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "categories"); ok {
		t.Fatal("expected a miss after InvalidatePattern")
	}
	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
}

func TestClient_WritesNeedToken(t *testing.T) {
	conn := serve(t, service.NewHandler(cache.New(nil)), authed())
	c := client.New(conn)

	if _, _, err := c.Get(t.Context(), "k"); err != nil {
		t.Fatalf("reads are open: %v", err)
	}
	err := c.Set(t.Context(), "k", []byte(`1`), 0)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestClient_RejectsInvalidJSONLocally(t *testing.T) {
	c := client.New(nil)
	if err := c.Set(t.Context(), "k", []byte("{nope"), 0); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

// flaky fails the first n calls of Get with Unavailable.
type flaky struct {
	service.Handler
	n     int32
	calls atomic.Int32
}

func (f *flaky) Get(ctx context.Context, req *service.GetRequest) (*service.GetResponse, error) {
	if f.calls.Add(1) <= f.n {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	return f.Handler.Get(ctx, req)
}

func TestClient_RetriesUnavailable(t *testing.T) {
	h := &flaky{Handler: service.NewHandler(cache.New(nil)), n: 2}
	conn := serve(t, h)
	c := client.New(conn, client.WithRetry(retry.Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Retryable:   retry.Codes(codes.Unavailable),
	}))

	if _, _, err := c.Get(t.Context(), "k"); err != nil {
		t.Fatalf("Get after retries: %v", err)
	}
	if got := h.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestAsCache_SwallowsErrors(t *testing.T) {
	h := &flaky{Handler: service.NewHandler(cache.New(nil)), n: 1 << 30}
	conn := serve(t, h)

	core, logs := observer.New(zap.WarnLevel)
	c := client.AsCache(client.New(conn,
		client.WithLogger(zap.New(core)),
		client.WithRetry(retry.Config{MaxAttempts: 1}),
	))

	if _, ok := c.Get(t.Context(), "k"); ok {
		t.Fatal("failed call must read as a miss")
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}
