package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDiscoverCmd creates the 'discover' subcommand: crawl the listing,
// queue new or changed leads, and download their documents.
func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Crawls the listing and downloads new or changed documents",
		Long: `Scans the remote listing page for case documents, queues the ones
that are new or whose status category changed, and downloads their bytes
into the local cache. Leads stay queued until a later parse succeeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.BuildPipeline().Discover(cmd.Context()); err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			return nil
		},
	}
}
