// Package policy maps gRPC method names to groups, each carrying the rate
// limit, auth requirement and deadline applied to its methods.
package policy

import (
	"regexp"
	"strings"
	"time"
)

// RateLimitRule allows Rate calls per Window for every method of a group
// together.
type RateLimitRule struct {
	Rate   int
	Window time.Duration
}

// Policy is what a matched group imposes on a call.
type Policy struct {
	RateLimit    *RateLimitRule
	Timeout      time.Duration
	AuthRequired bool
}

type matchKind int

const (
	kindExact matchKind = iota
	kindPrefix
	kindRegex
)

type rule struct {
	kind    matchKind
	pattern string
	re      *regexp.Regexp
}

// match reports whether r matches fullMethod and how many characters the
// match spans; the resolver prefers the longest span.
func (r rule) match(fullMethod string) (bool, int) {
	switch r.kind {
	case kindPrefix:
		return strings.HasPrefix(fullMethod, r.pattern), len(r.pattern)
	case kindRegex:
		loc := r.re.FindStringIndex(fullMethod)
		if loc == nil {
			return false, 0
		}
		return true, loc[1] - loc[0]
	default:
		return fullMethod == r.pattern, len(r.pattern)
	}
}

// GroupBuilder collects the rules and the policy of one named group.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy Policy
}

// Group starts a group called name. A group without a Policy call imposes
// the zero Policy.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

// Name returns the group name.
func (g *GroupBuilder) Name() string { return g.name }

// Exact matches one full method name.
func (g *GroupBuilder) Exact(methods ...string) *GroupBuilder {
	for _, m := range methods {
		g.rules = append(g.rules, rule{kind: kindExact, pattern: m})
	}
	return g
}

// Prefix matches every method starting with pattern, e.g. "/komora.cache.v1.Cache/".
func (g *GroupBuilder) Prefix(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindPrefix, pattern: pattern})
	return g
}

// Regex matches methods against pattern. It panics if pattern does not
// compile, like regexp.MustCompile.
func (g *GroupBuilder) Regex(pattern string) *GroupBuilder {
	g.rules = append(g.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern)})
	return g
}

// Policy sets the group's policy.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = p
	return g
}
