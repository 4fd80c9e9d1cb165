package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/config"
	"github.com/example/leadrouter/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize leadrouter in the current directory",
		Long: `Write .leadrouter/config.yaml with default settings and create the
configured database with the required schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			path := filepath.Join(cwd, config.Dir, "config.yaml")
			_, statErr := os.Stat(path)
			switch {
			case statErr == nil && !force:
				fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
			case statErr == nil || errors.Is(statErr, os.ErrNotExist):
				if err := config.SaveConfig(cwd, config.Default()); err != nil {
					return err
				}
				fmt.Printf("✓ Wrote %s\n", path)
			default:
				return fmt.Errorf("failed to check config: %w", statErr)
			}

			c, err := wire.Get()
			if err != nil {
				return err
			}

			target := c.Config.Database.Driver
			if c.Config.Database.Driver == config.DriverSQLite {
				target, _ = c.Config.DBPath()
			}
			fmt.Printf("✓ Database ready (%s)\n", target)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  leadrouter consultant add \"Ada Lovelace\"")
			fmt.Println("  leadrouter assign LEAD-1 --requester REQ-1")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
