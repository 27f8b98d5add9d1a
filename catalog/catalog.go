// Package catalog is the HTTP client for the commerce API. Read endpoints
// are memoized in a cache.Cache; mutations invalidate the key families they
// make stale, and a change of session clears the cache entirely.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/komoralink/komora/cache"
	"github.com/komoralink/komora/ratelimit"
	"github.com/komoralink/komora/retry"
)

// ErrStatus is matched by every StatusError.
var ErrStatus = errors.New("catalog: unexpected status")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Default TTLs.
const (
	DefaultTTL       = 5 * time.Minute
	DefaultStaticTTL = time.Hour // categories and currencies
)

// Client calls the commerce API. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	cache     cache.Cache
	limiter   *ratelimit.Limiter
	retry     retry.Config
	ttl       time.Duration
	staticTTL time.Duration
	log       *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = ratelimit.NewLimiter(rps, burst) }
}

func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithTTL sets the lifetime of memoized business, product and member reads.
func WithTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// WithStaticTTL sets the lifetime of memoized categories and currencies.
func WithStaticTTL(d time.Duration) Option {
	return func(c *Client) { c.staticTTL = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client for the API rooted at baseURL, memoizing reads in
// store.
func New(baseURL string, store cache.Cache, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("catalog: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("catalog: base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: 15 * time.Second},
		cache:     store,
		limiter:   ratelimit.NewLimiter(20, 40),
		ttl:       DefaultTTL,
		staticTTL: DefaultStaticTTL,
		log:       zap.NewNop(),
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Jitter:      0.2,
			Retryable:   retryable,
		},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("catalog")
	return c, nil
}

// retryable accepts transport failures and 5xx responses.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	var ne net.Error
	var ue *url.Error
	return errors.As(err, &ne) || errors.As(err, &ue)
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request and decodes a JSON response into out, which may be
// nil. Requests wait for the rate limiter and are retried per c.retry.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("catalog: encode %s %s: %w", method, path, err)
		}
	}

	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return retry.Run(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if tok := c.sessionToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
			c.log.Debug("catalog: request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
			return err
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("catalog: decode %s %s: %w", method, path, err)
		}
		return nil
	})
}

// fetch is a memoized GET.
func fetch[T any](ctx context.Context, c *Client, key string, ttl time.Duration, path string, query url.Values) (T, error) {
	return cache.GetOrSetJSON(ctx, c.cache, key, ttl, func(ctx context.Context) (T, error) {
		var out T
		err := c.do(ctx, http.MethodGet, path, query, nil, &out)
		return out, err
	})
}

func id(n int64) string { return strconv.FormatInt(n, 10) }
