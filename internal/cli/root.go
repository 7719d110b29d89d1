// Package cli implements the sanctum command line: the server itself plus
// offline tools for scanning content and checking policy files.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "sanctum",
	Short:        "Protective layer for sensitive personal records",
	Long:         "Encrypts, classifies and audits access to sensitive records. Every request passes session, rate limit, behavior, DLP and policy checks before it reaches storage.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
