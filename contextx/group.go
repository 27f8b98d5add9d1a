package contextx

import "context"

// WithGroup returns a copy of ctx carrying the name of the policy group the
// current method resolved to.
func WithGroup(ctx context.Context, group string) context.Context {
	return context.WithValue(ctx, groupKey, group)
}

// GroupFromContext returns the policy group name, or "" when the method
// matched no group.
func GroupFromContext(ctx context.Context) string {
	g, _ := ctx.Value(groupKey).(string)
	return g
}
