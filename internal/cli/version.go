package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// version is set by ldflags at build time.
var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := json.MarshalIndent(map[string]string{
			"version": version,
			"name":    "sanctum",
		}, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	},
}
