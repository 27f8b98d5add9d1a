package policy

// Match is the outcome of resolving a method.
type Match struct {
	Group  string
	Policy Policy
}

// Resolver picks the group that governs a method.
type Resolver struct {
	groups []*GroupBuilder
}

// NewResolver creates a Resolver over groups, in registration order.
func NewResolver(groups ...*GroupBuilder) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve returns the best match for fullMethod. Exact rules beat prefix
// rules, which beat regex rules; within a kind the longer match wins and a
// tie goes to the group registered first. A nil Resolver matches nothing.
func (res *Resolver) Resolve(fullMethod string) (Match, bool) {
	if res == nil {
		return Match{}, false
	}

	var (
		best     Match
		bestKind = matchKind(-1)
		bestLen  = -1
		found    bool
	)
	for _, g := range res.groups {
		for _, r := range g.rules {
			matched, n := r.match(fullMethod)
			if !matched {
				continue
			}
			if !found || r.kind < bestKind || (r.kind == bestKind && n > bestLen) {
				best = Match{Group: g.name, Policy: g.policy}
				bestKind, bestLen, found = r.kind, n, true
			}
		}
	}
	return best, found
}
