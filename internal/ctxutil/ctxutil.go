// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import (
	"context"
	"os"
)

// EnvActor names the actor recorded on audit events when no flag is given.
const EnvActor = "LEADROUTER_ACTOR"

type actorKey struct{}

// WithActorID returns a context carrying the ID of whoever triggered the operation.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// DefaultActor resolves the actor from LEADROUTER_ACTOR, then USER.
func DefaultActor() string {
	if actor := os.Getenv(EnvActor); actor != "" {
		return actor
	}
	return os.Getenv("USER")
}
