package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/ports/secondary"
	"github.com/example/leadrouter/internal/wire"
)

// FairnessCmd returns the fairness command group.
func FairnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairness",
		Short: "Inspect how evenly leads are distributed",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Show current scores and the fairness index",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.FairnessReport(commandContext(cmd))
		},
	})
	return cmd
}

// AuditCmd returns the audit command group.
func AuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}

	var filters secondary.AuditFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AuditAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.List(commandContext(cmd), filters)
		},
	}
	list.Flags().StringVarP(&filters.Type, "type", "t", "", "Filter by event type (e.g. assignment.created)")
	list.Flags().StringVarP(&filters.EntityID, "entity", "e", "", "Filter by entity ID")
	list.Flags().IntVarP(&filters.Limit, "limit", "l", 50, "Maximum rows to show (0 for all)")

	cmd.AddCommand(list)
	return cmd
}
