package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/workflows/codereview"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <go-file>",
	Short: "Submit a Go file to a review session",
	Long: `Runs the code review graph on a Go source file within a session.
The session counts submissions; with --store=redis it survives between calls.`,
	Example: `  stepgraph review main.go --session alice --threshold 0.9
  stepgraph review main.go --store redis --session alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		asJSON, _ := cmd.Flags().GetBool("json")

		code, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		input := domain.State{codereview.KeyCode: string(code)}
		if cmd.Flags().Changed("threshold") {
			input[codereview.KeyThreshold] = threshold
		}

		res, err := app.Sessions.Submit(cmd.Context(), sessionID, input)
		if res == nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
			return err
		}

		fmt.Fprintln(out, res.Message)
		fmt.Fprintf(out, "quality score: %.2f (threshold %.2f)\n", res.Review.QualityScore, res.Review.Threshold)
		for _, issue := range res.Review.Issues {
			fmt.Fprintf(out, "  line %d: %s\n", issue.Line, issue.Message)
		}
		for _, s := range res.Review.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().String("session", "cli", "Session id")
	reviewCmd.Flags().Float64("threshold", codereview.DefaultThreshold, "Quality score needed to accept")
	reviewCmd.Flags().Bool("json", false, "Print the result as JSON")
}
