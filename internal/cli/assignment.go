package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/wire"
)

// AssignmentCmd returns the assignment command group.
func AssignmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assignment",
		Aliases: []string{"assignments"},
		Short:   "Inspect and close assignments",
	}

	cmd.AddCommand(assignmentListCmd())
	cmd.AddCommand(assignmentShowCmd())
	cmd.AddCommand(assignmentCompleteCmd())
	cmd.AddCommand(assignmentCancelCmd())
	cmd.AddCommand(assignmentLineageCmd())
	return cmd
}

func assignmentListCmd() *cobra.Command {
	var filters primary.AssignmentFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.List(commandContext(cmd), filters)
		},
	}

	cmd.Flags().StringVarP(&filters.ConsultantID, "consultant", "c", "", "Filter by consultant")
	cmd.Flags().StringVar(&filters.RequesterID, "requester", "", "Filter by requester")
	cmd.Flags().StringVarP(&filters.Status, "status", "s", "", "Filter by status (active, completed, cancelled)")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "l", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func assignmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [assignment-id]",
		Short: "Show assignment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			_, err = adapter.Show(commandContext(cmd), args[0])
			return err
		},
	}
}

func assignmentCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [assignment-id]",
		Short: "Mark an active assignment as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Complete(commandContext(cmd), args[0])
		},
	}
}

func assignmentCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [assignment-id]",
		Short: "Cancel an active assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Cancel(commandContext(cmd), args[0])
		},
	}
}

func assignmentLineageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lineage [assignment-id]",
		Short: "Show the reassignment chain containing an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Lineage(commandContext(cmd), args[0])
		},
	}
}
