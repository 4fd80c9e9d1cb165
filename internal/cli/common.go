// Package cli implements the leadrouter cobra commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/ctxutil"
)

// ActorFlag is the persistent root flag naming who runs a command.
const ActorFlag = "actor"

// commandContext returns the command's context carrying the resolved actor.
func commandContext(cmd *cobra.Command) context.Context {
	actor, _ := cmd.Flags().GetString(ActorFlag)
	if actor == "" {
		actor = ctxutil.DefaultActor()
	}
	return ctxutil.WithActorID(cmd.Context(), actor)
}
