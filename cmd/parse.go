package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newParseCmd creates the 'parse' subcommand: drain the pending queue
// through extraction and persist the results.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Extracts queued documents into the record store",
		Long: `Runs every queued document with cached bytes through text
recognition and field extraction. Complete records are merged into the
record store in one transaction; failed documents stay queued for retry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.BuildPipeline().Parse(cmd.Context()); err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			return nil
		},
	}
}
