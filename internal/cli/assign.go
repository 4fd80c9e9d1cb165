package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/wire"
)

// AssignCmd returns the assign command.
func AssignCmd() *cobra.Command {
	var (
		requester string
		leadName  string
		exclude   []string
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "assign [lead-ref]",
		Short: "Route a lead to the fairest available consultant",
		Long: `Score the active roster, filter out excluded, saturated and recently
paired consultants, and commit the assignment to the best candidate.

Transient commit conflicts are retried up to --retries times.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retries < 0 {
				return fmt.Errorf("--retries must not be negative")
			}
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			_, err = adapter.Assign(commandContext(cmd), primary.CreateAssignmentRequest{
				RequesterID:        requester,
				Lead:               primary.Lead{Ref: args[0], Name: leadName},
				ExcludeConsultants: exclude,
			}, retries)
			return err
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "ID of the requesting party (required)")
	cmd.Flags().StringVarP(&leadName, "name", "n", "", "Display name of the lead")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "Consultant IDs that must not receive the lead")
	cmd.Flags().IntVar(&retries, "retries", 2, "Extra attempts after a concurrency conflict")
	cmd.MarkFlagRequired("requester")

	cmd.AddCommand(assignManualCmd())
	return cmd
}

func assignManualCmd() *cobra.Command {
	var (
		requester string
		leadName  string
		override  bool
		reason    string
	)

	cmd := &cobra.Command{
		Use:   "manual [lead-ref] [consultant-id]",
		Short: "Assign a lead to a named consultant, bypassing scoring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := "manual"
			if override {
				method = "manager_override"
			}
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.AssignManually(commandContext(cmd), primary.ManualAssignmentRequest{
				RequesterID:  requester,
				Lead:         primary.Lead{Ref: args[0], Name: leadName},
				ConsultantID: args[1],
				Method:       method,
				ManualReason: reason,
			})
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "ID of the requesting party (required)")
	cmd.Flags().StringVarP(&leadName, "name", "n", "", "Display name of the lead")
	cmd.Flags().BoolVar(&override, "override", false, "Record the assignment as a manager override")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why scoring was bypassed")
	cmd.MarkFlagRequired("requester")
	return cmd
}

// ReassignCmd returns the reassign command.
func ReassignCmd() *cobra.Command {
	var (
		reason    string
		exclude   []string
		requester string
	)

	cmd := &cobra.Command{
		Use:   "reassign [assignment-id]",
		Short: "Move an active assignment to a consultant who has not held the lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.AssignmentAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Reassign(commandContext(cmd), primary.ReassignRequest{
				AssignmentID:    args[0],
				Reason:          reason,
				ExtraExclusions: exclude,
				RequesterID:     requester,
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the lead is moving")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "Further consultant IDs to exclude")
	cmd.Flags().StringVar(&requester, "requester", "", "Override the requester recorded on the new assignment")
	return cmd
}
