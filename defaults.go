package komora

import "github.com/komoralink/komora/policy"

// DefaultOptions returns the options the daemon runs with: recovery,
// request IDs, access logging and the default cache policy groups.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
		WithAccessLog(),
		WithPolicies(policy.CacheDefaults()),
	}
}
