package services

import "context"

type actorKey struct{}

// WithActor stores the authenticated user id for audit records
func WithActor(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the user id stored by WithActor, zero when absent
func ActorFrom(ctx context.Context) uint {
	id, _ := ctx.Value(actorKey{}).(uint)
	return id
}
