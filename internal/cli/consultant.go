package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/wire"
)

// ConsultantCmd returns the consultant command group.
func ConsultantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "consultant",
		Aliases: []string{"consultants"},
		Short:   "Manage the consultant roster",
	}

	cmd.AddCommand(consultantAddCmd())
	cmd.AddCommand(consultantListCmd())
	cmd.AddCommand(consultantShowCmd())
	cmd.AddCommand(consultantDeactivateCmd())
	cmd.AddCommand(consultantReactivateCmd())
	cmd.AddCommand(consultantForceRemoveCmd())
	cmd.AddCommand(consultantRecountCmd())
	return cmd
}

func consultantAddCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a consultant to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Add(commandContext(cmd), args[0], email)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Contact email")
	return cmd
}

func consultantListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consultants",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.List(commandContext(cmd), all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive consultants")
	return cmd
}

func consultantShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [consultant-id]",
		Short: "Show consultant details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			_, err = adapter.Show(commandContext(cmd), args[0])
			return err
		},
	}
}

func consultantDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [consultant-id]",
		Short: "Remove a consultant with no active assignments from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Deactivate(commandContext(cmd), args[0])
		},
	}
}

func consultantReactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate [consultant-id]",
		Short: "Return a consultant to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Reactivate(commandContext(cmd), args[0])
		},
	}
}

func consultantForceRemoveCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "force-remove [consultant-id]",
		Short: "Reassign a consultant's active assignments, then deactivate them",
		Long: `Reassign every active assignment held by the consultant through the
normal selection rules, then deactivate them. The consultant stays active
if any assignment could not be moved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.ForceRemove(commandContext(cmd), args[0], reason)
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded on each reassignment")
	return cmd
}

func consultantRecountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount [consultant-id]",
		Short: "Rebuild a consultant's counters from assignment history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.ConsultantAdapter(os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Recount(commandContext(cmd), args[0])
		},
	}
}
