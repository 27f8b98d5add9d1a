// Package ratelimit wraps golang.org/x/time/rate token buckets. The server
// uses them to reject excess gRPC calls and the catalog client uses them to
// pace outgoing HTTP requests.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter refilling at rps tokens per second and
// holding at most burst tokens.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// PerWindow creates a Limiter allowing n events per window, all of which may
// be spent at once.
func PerWindow(n int, window time.Duration) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(window/time.Duration(n)), n)}
}

// Allow reports whether one event may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
