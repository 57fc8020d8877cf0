// coach is the offline CLI: it runs the same decode→parse→analyze pipeline
// as the service, without any infrastructure, and prints the report JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fortuna/victoria/internal/config"
	"github.com/fortuna/victoria/internal/report"
)

var (
	flagMaxChars int
	flagBudgetMS int
	flagPretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Analyze game replays offline",
	Long:  "coach runs the victoria replay analysis pipeline on local files and prints the coaching report as JSON.",
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <replay-file>",
	Short: "Analyze a replay file and print the coaching report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading replay file: %w", err)
		}

		limits := config.DefaultLimits()
		if flagMaxChars > 0 {
			limits.MaxDecodedChars = flagMaxChars
		}
		if flagBudgetMS > 0 {
			limits.AnalysisBudgetMS = flagBudgetMS
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), limits.AnalysisBudget())
		defer cancel()

		svc := report.NewService(nil, report.Limits{
			MaxDecodedChars: limits.MaxDecodedChars,
			PerCategoryCap:  limits.FindingsPerCategory,
		})

		rep, err := svc.Generate(ctx, string(raw))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		if flagPretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(rep)
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&flagMaxChars, "max-chars", 0, "maximum decoded replay size in characters (0 = default)")
	analyzeCmd.Flags().IntVar(&flagBudgetMS, "budget-ms", int((10 * time.Second).Milliseconds()), "analysis wall-clock budget in milliseconds")
	analyzeCmd.Flags().BoolVar(&flagPretty, "pretty", false, "indent the report JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
