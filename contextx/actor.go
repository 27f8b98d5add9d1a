// Package contextx carries request-scoped values through a call: the
// authenticated actor, the policy group, the request ID and a logger
// annotated with that ID.
package contextx

import (
	"context"
	"slices"
)

// Actor is the identity a bearer token resolved to.
type Actor struct {
	Subject string
	Scopes  []string
}

// HasScope reports whether the actor was granted scope.
func (a Actor) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
