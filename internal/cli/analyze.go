package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/law-makers/reviewlens/internal/analysis"
)

var (
	analyzeStage  string
	analyzeForce  bool
	analyzeOutput string
)

// analyzeCmd runs the analysis pipeline, or one stage, for a stored product.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <product-id>",
	Short: "Run review analysis for a stored product",
	Long: `Runs the analysis pipeline for a product that has already been
scraped. Without --stage the full ordered pipeline runs; with --stage only
that stage runs and its result is printed.`,
	Example: `  # Full pipeline
  reviewlens analyze 1

  # One stage, bypassing the cache
  reviewlens analyze 1 --stage sentiment --force`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeStage, "stage", "s", "", "Single stage to run: sentiment, fake_detection, aspects, topics or insights")
	analyzeCmd.Flags().BoolVarP(&analyzeForce, "force", "f", false, "Bypass the result cache")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "File path to write the JSON result (default: stdout)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a := GetApp()

	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}

	if analyzeStage != "" {
		payload, err := a.Runner.Stage(cmd.Context(), productID, analyzeStage, analyzeForce)
		if err != nil {
			return err
		}
		return writeRawJSON(analyzeOutput, payload)
	}

	if analyzeForce {
		if err := a.Runner.Reanalyze(cmd.Context(), productID); err != nil {
			return err
		}
	} else if err := a.Runner.RunAll(cmd.Context(), productID); err != nil {
		return err
	}

	// Print the insights summary as the run's human-facing result.
	payload, err := a.Runner.Stage(cmd.Context(), productID, analysis.StageInsights, false)
	if err != nil {
		return err
	}
	return writeRawJSON(analyzeOutput, payload)
}
