package resource

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the controller stored in ctx, or nil.
func FromContext(ctx context.Context) *Controller {
	c, _ := ctx.Value(ctxKey{}).(*Controller)
	return c
}
