package rbac

import "context"

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor, defaulting to Anonymous.
func ActorFromContext(ctx context.Context) Actor {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return Anonymous()
	}
	return actor
}
