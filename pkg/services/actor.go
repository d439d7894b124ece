package services

import "context"

type actorKey struct{}

// WithActor returns a context carrying the display name of the acting user.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorFrom returns the acting user stored in ctx, or "".
func ActorFrom(ctx context.Context) string {
	name, _ := ctx.Value(actorKey{}).(string)

	return name
}
