package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/cli"
	"github.com/example/leadrouter/internal/version"
	"github.com/example/leadrouter/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "leadrouter",
		Short:   "leadrouter - fair lead assignment for consultant teams",
		Version: version.String(),
		Long: `leadrouter routes incoming leads to consultants, balancing workload by
a fairness score and keeping a full audit trail of every assignment,
reassignment and roster change.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String(cli.ActorFlag, "", "Actor recorded on audit events (defaults to $LEADROUTER_ACTOR, then $USER)")

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ConsultantCmd())
	rootCmd.AddCommand(cli.AssignCmd())
	rootCmd.AddCommand(cli.ReassignCmd())
	rootCmd.AddCommand(cli.AssignmentCmd())
	rootCmd.AddCommand(cli.FairnessCmd())
	rootCmd.AddCommand(cli.AuditCmd())
	rootCmd.AddCommand(cli.MetricsCmd())

	// Developer tools
	rootCmd.AddCommand(cli.DevCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if closeErr := wire.Shutdown(); closeErr != nil {
		fmt.Fprintln(os.Stderr, closeErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
