package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/stepgraph/internal/dto"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [graph-file]",
	Short: "Print a graph as a Mermaid diagram or as JSON",
	Long: `Prints a graph file, or a stored graph selected with --graph-id.
With --run, the diagram highlights the nodes a recorded run visited.`,
	Example: `  stepgraph graph review.yaml
  stepgraph graph --graph-id code_review_refine --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graphID, _ := cmd.Flags().GetString("graph-id")
		format, _ := cmd.Flags().GetString("format")
		runID, _ := cmd.Flags().GetString("run")

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		var g *domain.GraphDefinition
		switch {
		case len(args) == 1:
			g, err = file.LoadGraph(args[0])
		case graphID != "":
			g, err = app.Engine.GetGraph(cmd.Context(), graphID)
		default:
			return fmt.Errorf("a graph file or --graph-id is required")
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(dto.FromDomain(g))
		case "mermaid":
			var overlay *graph.GraphOverlay
			if runID != "" {
				rec, err := app.Engine.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				overlay = graph.OverlayFromRun(rec)
			}
			fmt.Fprint(out, graph.GenerateMermaid(g, overlay))
			return nil
		default:
			return fmt.Errorf("unknown format %q", format)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("graph-id", "", "Print a stored graph instead of a file")
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
	graphCmd.Flags().String("run", "", "Highlight the path of this run (needs a persistent store)")
}
