package policy

import (
	"time"

	"github.com/komoralink/komora/service"
)

// Default group names.
const (
	GroupAdmin  = "admin"
	GroupWrites = "writes"
	GroupReads  = "reads"
)

// CacheDefaults returns the groups the daemon uses for the cache service.
// Whole-cache and pattern invalidations are authenticated and limited to
// ten per minute, single-key writes are authenticated and reads are open.
func CacheDefaults() *Resolver {
	return NewResolver(
		Group(GroupAdmin).
			Exact(service.MethodClearAll, service.MethodInvalidatePattern).
			Policy(Policy{
				AuthRequired: true,
				RateLimit:    &RateLimitRule{Rate: 10, Window: time.Minute},
				Timeout:      30 * time.Second,
			}),
		Group(GroupWrites).
			Exact(service.MethodSet, service.MethodInvalidate).
			Policy(Policy{AuthRequired: true, Timeout: 5 * time.Second}),
		Group(GroupReads).
			Exact(service.MethodGet).
			Policy(Policy{Timeout: 2 * time.Second}),
	)
}
