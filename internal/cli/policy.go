package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sanctum/internal/policy"
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyDefaultsCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect classification policy files",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a policy file and print its hash",
	Long: "Parses the file with the same rules the server applies on load and\n" +
		"hot reload. Exit code 0 if every policy is valid.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := policy.New()
		hash, err := engine.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s OK (%s)\n", args[0], hash)
		for _, dataType := range engine.DataTypes() {
			rule, _ := engine.Rule(dataType)
			fmt.Fprintf(out, "  %-16s %-10s controls=%v two_factor=%t retention_days=%d\n",
				dataType, rule.Classification, rule.AccessControls, rule.TwoFactorRequired, rule.RetentionDays)
		}
		return nil
	},
}

var policyDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in policies as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := policy.Marshal(policy.DefaultRules())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
