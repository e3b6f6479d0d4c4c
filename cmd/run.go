package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRunCmd creates the 'run' subcommand: a full discover-then-parse cycle.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs a full discover-and-parse cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.BuildPipeline().Run(cmd.Context()); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			return nil
		},
	}
}
