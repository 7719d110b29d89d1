package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sanctum/internal/dlp"
	"sanctum/pkg/platform/httputil"
)

var (
	scanFile      string
	scanRedacted  bool
	scanThreshold float64
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanFile, "file", "f", "", "File to scan (default: stdin)")
	scanCmd.Flags().BoolVar(&scanRedacted, "redacted", false, "Print only the redacted content")
	scanCmd.Flags().Float64Var(&scanThreshold, "fail-above", 0, "Exit non-zero when risk level exceeds this value (0 disables)")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan text for personal identifiers and sensitive topics",
	Long: "Runs the DLP scanner over a file or stdin and prints the findings as JSON.\n" +
		"Matched values are never printed, only their types and offsets.",
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if scanFile != "" {
		f, err := os.Open(scanFile)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(io.LimitReader(in, httputil.MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(data) > httputil.MaxBodyBytes {
		return fmt.Errorf("input exceeds %d bytes", httputil.MaxBodyBytes)
	}

	result := dlp.New().Scan(string(data))

	out := cmd.OutOrStdout()
	if scanRedacted {
		fmt.Fprintln(out, result.RedactedContent)
	} else {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			*dlp.Result
			Counts map[string]int `json:"counts"`
		}{result, result.CountsByType()}); err != nil {
			return err
		}
	}

	if scanThreshold > 0 && result.RiskLevel > scanThreshold {
		return fmt.Errorf("risk level %.3f exceeds %.3f", result.RiskLevel, scanThreshold)
	}
	return nil
}
