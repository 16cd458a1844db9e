// narratorctl is the operator companion to the narrator API: environment
// checks and maintenance jobs that do not belong in the server process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "narratorctl",
		Short: "Operations companion for the narrator service",
		Long: `narratorctl bundles the operational chores around the narrator service:
checking that the upstream services and the Python sidecar environment are
in order, and regenerating images for existing transcripts in bulk.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newBatchImagesCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
