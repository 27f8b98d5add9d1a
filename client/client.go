// Package client talks to a komora daemon over gRPC.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/komoralink/komora/auth"
	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/retry"
	"github.com/komoralink/komora/service"
	"github.com/komoralink/komora/tracing"
)

// DefaultRetry retries calls the daemon shed or could not take.
var DefaultRetry = retry.Config{
	MaxAttempts: 3,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    time.Second,
	Jitter:      0.2,
	Retryable:   retry.Codes(codes.Unavailable, codes.ResourceExhausted),
}

// Client issues cache calls against a daemon. Unlike a cache.Cache its
// methods report transport and status errors.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
	retry retry.Config
	log   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends tok as a bearer token on every call.
func WithToken(tok string) Option {
	return func(c *Client) { c.token = tok }
}

// WithRetry replaces DefaultRetry.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger AsCache reports swallowed errors to.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client over conn.
func New(conn grpc.ClientConnInterface, opts ...Option) *Client {
	c := &Client{conn: conn, retry: DefaultRetry, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("client")
	return c
}

// Dial opens a plaintext connection to addr with client tracing installed.
// Extra dial options are appended.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(tracing.UnaryClient(&tracing.Config{})),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.AuthorizationHeader, "Bearer "+c.token)
	}
	return retry.Run(ctx, c.retry, func(ctx context.Context) error {
		return c.conn.Invoke(ctx, method, req, resp)
	})
}

// Get returns the value cached under key and whether it was found.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp := new(service.GetResponse)
	if err := c.invoke(ctx, service.MethodGet, &service.GetRequest{Key: key}, resp); err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

// Set stores the JSON document val under key. A non-positive ttl selects
// the daemon's default.
func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if !json.Valid(val) {
		return fmt.Errorf("client: value for %q is not valid JSON", key)
	}
	req := &service.SetRequest{Key: key, Value: val, TTLMillis: ttl.Milliseconds()}
	return c.invoke(ctx, service.MethodSet, req, new(service.Empty))
}

func (c *Client) Invalidate(ctx context.Context, key string) error {
	return c.invoke(ctx, service.MethodInvalidate, &service.InvalidateRequest{Key: key}, new(service.Empty))
}

func (c *Client) InvalidatePattern(ctx context.Context, pattern string) error {
	return c.invoke(ctx, service.MethodInvalidatePattern, &service.InvalidatePatternRequest{Pattern: pattern}, new(service.Empty))
}

func (c *Client) ClearAll(ctx context.Context) error {
	return c.invoke(ctx, service.MethodClearAll, &service.ClearAllRequest{}, new(service.Empty))
}

// AsCache adapts c to cache.Cache. Failed calls are logged at warn level
// and reported as misses, so a caller degrades to its own loader when the
// daemon is unreachable.
func AsCache(c *Client) cache.Cache {
	return remote{c}
}

type remote struct{ c *Client }

func (r remote) warn(msg, key string, err error) {
	r.c.log.Warn(msg, zap.String("key", key), zap.Error(err))
}

func (r remote) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok, err := r.c.Get(ctx, key)
	if err != nil {
		r.warn("client: get failed", key, err)
		return nil, false
	}
	return v, ok
}

func (r remote) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.c.Set(ctx, key, val, ttl); err != nil {
		r.warn("client: set failed", key, err)
	}
}

func (r remote) Invalidate(ctx context.Context, key string) {
	if err := r.c.Invalidate(ctx, key); err != nil {
		r.warn("client: invalidate failed", key, err)
	}
}

func (r remote) InvalidatePattern(ctx context.Context, pattern string) {
	if err := r.c.InvalidatePattern(ctx, pattern); err != nil {
		r.warn("client: invalidate pattern failed", pattern, err)
	}
}

func (r remote) ClearAll(ctx context.Context) {
	if err := r.c.ClearAll(ctx); err != nil {
		r.warn("client: clear failed", "*", err)
	}
}
